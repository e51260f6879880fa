// Package account models the linux.do account identities the reader runs
// against and parses them from the pipe-delimited ACCOUNTS configuration.
package account

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"ldreader/pkg/logger"
	"ldreader/pkg/mask"
)

// Account holds the credentials for one linux.do account. Constructed once
// per run from configuration and treated as immutable afterwards.
type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Masked returns the username in its log-safe masked form.
func (a Account) Masked() string {
	return mask.Username(a.Username)
}

// Hash returns a stable, filesystem-safe key derived from the username.
// Cache and storage-state filenames use this instead of the plaintext name.
func (a Account) Hash() string {
	sum := sha256.Sum256([]byte(a.Username))
	return hex.EncodeToString(sum[:])[:8]
}

// Pipe-format field positions. The ACCOUNTS variable carries one account per
// line: provider|api_user|cookies|github_user|github_pass|linuxdo_user|linuxdo_pass
const (
	fieldProvider = 0
	fieldAPIUser  = 1
	fieldUsername = 5
	fieldPassword = 6
)

// Parse extracts the accounts that carry linux.do credentials from the
// pipe-delimited multi-line configuration string. Blank lines and lines
// starting with '#' are skipped, as are lines with fewer than two fields.
// Duplicate entries (same provider and primary user) are dropped with a
// warning. Malformed input degrades to an empty list, never an error.
func Parse(accountsStr string) []Account {
	log := logger.GetLogger()

	var accounts []Account
	seen := make(map[string]bool)

	for _, line := range strings.Split(accountsStr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}

		field := func(i int) string {
			if i < len(parts) {
				return strings.TrimSpace(parts[i])
			}
			return ""
		}

		primary := field(fieldAPIUser)
		if primary == "" {
			primary = field(fieldUsername)
		}
		key := field(fieldProvider) + ":" + primary
		if seen[key] {
			log.WithField("username", mask.Username(primary)).Warn("skipping duplicate account entry")
			continue
		}
		seen[key] = true

		username := field(fieldUsername)
		password := field(fieldPassword)
		if username == "" || password == "" {
			continue
		}

		accounts = append(accounts, Account{Username: username, Password: password})
	}

	return accounts
}
