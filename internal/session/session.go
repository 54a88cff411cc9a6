// Package session keeps the signed-in user between CLI invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jwalitptl/medconsult-api/internal/model"
)

// Session holds the current identity. Current returns nil when nobody is
// signed in.
type Session interface {
	Current() (*model.User, error)
	Set(user model.User) error
	Clear() error
}

type FileSession struct {
	path string
}

func NewFileSession(path string) *FileSession {
	return &FileSession{path: path}
}

// DefaultPath is the session file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "medctl", "session.json"), nil
}

func (s *FileSession) Path() string {
	return s.path
}

// Current treats an unreadable session file as signed out.
func (s *FileSession) Current() (*model.User, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil || user.ID == "" {
		return nil, nil
	}
	return &user, nil
}

// Set stores the public view of user; the password hash never reaches disk.
func (s *FileSession) Set(user model.User) error {
	data, err := json.MarshalIndent(user.Public(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *FileSession) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// MemorySession is a Session for tests and one-shot runs.
type MemorySession struct {
	user *model.User
}

func (s *MemorySession) Current() (*model.User, error) {
	if s.user == nil {
		return nil, nil
	}
	u := *s.user
	return &u, nil
}

func (s *MemorySession) Set(user model.User) error {
	public := user.Public()
	s.user = &public
	return nil
}

func (s *MemorySession) Clear() error {
	s.user = nil
	return nil
}
