package storage

import (
	"context"
	"sync"

	"wfh/attendance/internal/session"
)

// MemoryStore holds the entries for the life of the process.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	user  string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (session.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeEntries(s.token, s.user)
}

func (s *MemoryStore) Save(_ context.Context, sess session.Session) error {
	token, user, err := encodeEntries(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.token, s.user = "", ""
	s.mu.Unlock()
	return nil
}
