package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/layer-3/cobic/core"
)

// fileDocument is the on-disk layout of the credentials file
type fileDocument struct {
	Token     string               `json:"token,omitempty"`
	User      *core.User           `json:"user,omitempty"`
	Reminders map[string]time.Time `json:"reminders,omitempty"`
}

// FileStore keeps the credential in a JSON file readable only by the owner.
// Every write goes to a temporary file that is renamed over the target, so a
// reader sees either the old or the new document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path, creating its directory
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// DefaultFilePath returns ~/.cobic/credentials.json
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cobic", "credentials.json"), nil
}

func (s *FileStore) load() (fileDocument, error) {
	var doc fileDocument
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read credentials: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decode credentials: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return doc, nil
}

func (s *FileStore) save(doc fileDocument) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("write credentials: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credentials: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credentials: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write credentials: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write credentials: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// update applies fn to the current document and writes the result
func (s *FileStore) update(fn func(doc *fileDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *FileStore) read() (fileDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// GetToken returns the stored token
func (s *FileStore) GetToken(ctx context.Context) (string, bool, error) {
	doc, err := s.read()
	if err != nil {
		return "", false, err
	}
	return doc.Token, doc.Token != "", nil
}

// SetToken overwrites the stored token
func (s *FileStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return core.ErrEmptyToken
	}
	return s.update(func(doc *fileDocument) error {
		doc.Token = token
		return nil
	})
}

// RemoveToken clears token and profile; reminders are kept
func (s *FileStore) RemoveToken(ctx context.Context) error {
	return s.update(func(doc *fileDocument) error {
		doc.Token = ""
		doc.User = nil
		return nil
	})
}

// SaveCredential writes token and profile in one file replacement
func (s *FileStore) SaveCredential(ctx context.Context, token string, user *core.User) error {
	if token == "" {
		return core.ErrEmptyToken
	}
	return s.update(func(doc *fileDocument) error {
		doc.Token = token
		doc.User = user.Clone()
		return nil
	})
}

// GetProfile returns the cached profile
func (s *FileStore) GetProfile(ctx context.Context) (*core.User, bool, error) {
	doc, err := s.read()
	if err != nil {
		return nil, false, err
	}
	if doc.Token == "" || doc.User == nil {
		return nil, false, nil
	}
	return doc.User, true, nil
}

// SaveProfile replaces the cached profile of the current credential
func (s *FileStore) SaveProfile(ctx context.Context, user *core.User) error {
	return s.update(func(doc *fileDocument) error {
		if doc.Token == "" {
			return core.ErrNoCredential
		}
		doc.User = user.Clone()
		return nil
	})
}

// SetReminder stores a named timestamp
func (s *FileStore) SetReminder(ctx context.Context, key string, at time.Time) error {
	return s.update(func(doc *fileDocument) error {
		if doc.Reminders == nil {
			doc.Reminders = make(map[string]time.Time)
		}
		doc.Reminders[key] = at.UTC()
		return nil
	})
}

// GetReminder returns a named timestamp
func (s *FileStore) GetReminder(ctx context.Context, key string) (time.Time, bool, error) {
	doc, err := s.read()
	if err != nil {
		return time.Time{}, false, err
	}
	at, ok := doc.Reminders[key]
	return at, ok, nil
}

// ClearReminder deletes a named timestamp
func (s *FileStore) ClearReminder(ctx context.Context, key string) error {
	return s.update(func(doc *fileDocument) error {
		delete(doc.Reminders, key)
		return nil
	})
}
