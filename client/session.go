package client

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gripehq/gripe/apperr"
)

// DefaultSessionPath returns the session file location under the user's
// home directory.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gripe", "session.json"), nil
}

// LoadSession reads a stored session. Returns ErrUnauthenticated when
// no session exists, since the fix is the same either way: log in.
func LoadSession(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.ErrUnauthenticated, "no session, run 'gripectl login' first")
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "corrupt session file, run 'gripectl login' again")
	}
	return &s, nil
}

// SaveSession persists the session with owner-only permissions.
func SaveSession(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0600)
}

// ClearSession removes the stored session. Missing file is fine.
func ClearSession(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
