// Package progress persists the last-visited topic ID per account so the
// next run resumes instead of restarting. This is the only state that
// survives across runs.
package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ldreader/pkg/logger"
)

// Store reads and writes one account's progress file. The file holds the
// decimal topic ID as plain text; absence means "no prior progress".
type Store struct {
	path string
	log  logger.Logger
}

// NewStore creates a store for the account identified by accountHash,
// backed by <cacheDir>/<hash>_topic_id.txt.
func NewStore(cacheDir, accountHash string) (*Store, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{
		path: filepath.Join(cacheDir, accountHash+"_topic_id.txt"),
		log:  logger.GetLogger(),
	}, nil
}

// Load returns the cached topic ID, or 0 when the file is absent, empty, or
// unreadable. A corrupt cache is worth a warning, never a failed run.
func (s *Store) Load() int {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).WithField("path", s.path).Warn("failed to load topic ID from cache")
		}
		return 0
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return 0
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil || id < 0 {
		s.log.WithField("path", s.path).Warn("topic ID cache is corrupt, starting fresh")
		return 0
	}
	return id
}

// Save writes topicID atomically via a temp file and rename, so a crash
// mid-write never truncates the previous progress.
func (s *Store) Save(topicID int) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(topicID)), 0644); err != nil {
		return fmt.Errorf("failed to write topic ID cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace topic ID cache: %w", err)
	}
	s.log.WithField("topic_id", topicID).Debug("saved topic ID to cache")
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}
