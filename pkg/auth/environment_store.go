package auth

import (
	"os"

	"ldreader/pkg/account"
)

// EnvironmentStore exposes the ACCOUNTS environment variable as a read-only
// credential store. It is always last in the fallback chain.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(acct *StoredAccount) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the ACCOUNTS variable
func (e *EnvironmentStore) Retrieve(username string) (*StoredAccount, error) {
	for _, acct := range account.Parse(os.Getenv("ACCOUNTS")) {
		if acct.Username == username {
			return &StoredAccount{Username: acct.Username, Password: acct.Password}, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// List returns all accounts declared in the environment
func (e *EnvironmentStore) List() ([]*StoredAccount, error) {
	var result []*StoredAccount
	for _, acct := range account.Parse(os.Getenv("ACCOUNTS")) {
		result = append(result, &StoredAccount{Username: acct.Username, Password: acct.Password})
	}
	return result, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment declares the username
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
