package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"wfh/attendance/internal/session"
)

// FileStore keeps both entries in one JSON file so they are replaced
// together by a rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileEntries struct {
	Token string `json:"token"`
	User  string `json:"user"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: filepath.Clean(path)}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (session.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return session.Session{}, false, nil
	}
	if err != nil {
		return session.Session{}, false, err
	}
	if len(data) == 0 {
		return session.Session{}, false, nil
	}
	var entries fileEntries
	if err := json.Unmarshal(data, &entries); err != nil {
		return session.Session{}, false, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return decodeEntries(entries.Token, entries.User)
}

func (s *FileStore) Save(_ context.Context, sess session.Session) error {
	token, user, err := encodeEntries(sess)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(fileEntries{Token: token, User: user}, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Watch calls onChange whenever the session file is created, rewritten or
// removed, including by another process. The watcher runs until ctx ends.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("session file watcher error: %v", err)
			}
		}
	}()
	return nil
}
