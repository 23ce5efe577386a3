package knownusers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"principalcheck/internal/principal/models"
	"principalcheck/pkg/platform/sentinel"
)

// InMemoryStore is a process-local Store.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.KnownUser
	now   func() time.Time
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users: make(map[string]*models.KnownUser),
		now:   time.Now,
	}
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, id string) (*models.KnownUser, error) {
	if id == "" {
		return nil, fmt.Errorf("known user id: %w", sentinel.ErrInvalidState)
	}
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if ok {
		copied := *u
		return &copied, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	u = &models.KnownUser{ID: id, FullName: id, UpdatedAt: s.now()}
	s.users[id] = u
	copied := *u
	return &copied, nil
}

func (s *InMemoryStore) Save(_ context.Context, user *models.KnownUser) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("known user id: %w", sentinel.ErrInvalidState)
	}
	copied := *user
	if copied.FullName == "" {
		copied.FullName = copied.ID
	}
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = s.now()
	}
	s.mu.Lock()
	s.users[user.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, id)
	return nil
}
