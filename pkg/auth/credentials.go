// Package auth stores forum account credentials across layered backends:
// the system keychain, an encrypted file, and environment variables.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"ldreader/pkg/account"
)

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// StoredAccount is an account record as persisted by a CredentialStore.
type StoredAccount struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// Account converts the stored record into a runtime account value.
func (s *StoredAccount) Account() account.Account {
	return account.Account{Username: s.Username, Password: s.Password}
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(acct *StoredAccount) error

	// Retrieve gets credentials for a specific username
	Retrieve(username string) (*StoredAccount, error)

	// List returns all stored accounts
	List() ([]*StoredAccount, error)

	// Delete removes credentials for a specific username
	Delete(username string) error

	// Exists checks if credentials exist for a username
	Exists(username string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a new credential manager with appropriate storage backends
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves credentials using the first store that accepts them.
func (m *Manager) Store(acct *StoredAccount) error {
	if acct == nil || acct.Username == "" {
		return errors.New("username is required")
	}
	if acct.Password == "" {
		return errors.New("password is required")
	}

	acct.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(acct); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(username string) (*StoredAccount, error) {
	for _, store := range m.stores {
		if acct, err := store.Retrieve(username); err == nil && acct != nil {
			return acct, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
}

// List returns all stored accounts from all stores, keeping the most
// recently modified record per username.
func (m *Manager) List() ([]*StoredAccount, error) {
	accountMap := make(map[string]*StoredAccount)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, acct := range accounts {
			if existing, ok := accountMap[acct.Username]; !ok || acct.LastModified.After(existing.LastModified) {
				accountMap[acct.Username] = acct
			}
		}
	}

	var result []*StoredAccount
	for _, acct := range accountMap {
		result = append(result, acct)
	}

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
	}

	return nil
}

// Accounts returns every usable account for a run: the environment-supplied
// accounts first, then stored accounts not already present. Environment wins
// on duplicates so a CI secret can override a stale stored password.
func (m *Manager) Accounts() []account.Account {
	seen := make(map[string]bool)
	var result []account.Account

	for _, acct := range account.Parse(os.Getenv("ACCOUNTS")) {
		if seen[acct.Username] {
			continue
		}
		seen[acct.Username] = true
		result = append(result, acct)
	}

	stored, err := m.List()
	if err != nil {
		return result
	}
	for _, s := range stored {
		if s.Username == "" || s.Password == "" || seen[s.Username] {
			continue
		}
		seen[s.Username] = true
		result = append(result, s.Account())
	}

	return result
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "ldreader")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "ldreader")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "ldreader")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "ldreader")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}
