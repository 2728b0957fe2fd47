package service

import (
	"context"
	"sync"

	"github.com/mindlab/cardshop/internal/mirror"
	"github.com/mindlab/cardshop/internal/models"
)

// Session is the signed-in user of this process, persisted in the mirror so
// it survives a restart. It never holds a credential.
type Session struct {
	m    *mirror.Store
	mu   sync.RWMutex
	user *models.User
}

func NewSession(m *mirror.Store) *Session {
	return &Session{m: m}
}

// Load reads the persisted session. A missing entry means signed out.
func (s *Session) Load(ctx context.Context) error {
	var u models.User
	ok, err := s.m.Get(ctx, mirror.KeySession, &u)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok && u.ID != "" {
		s.user = &u
	} else {
		s.user = nil
	}
	return nil
}

func (s *Session) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) Set(ctx context.Context, u models.User) error {
	u = u.Public()
	if err := s.m.Set(ctx, mirror.KeySession, u); err != nil {
		return err
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

func (s *Session) Clear(ctx context.Context) error {
	if err := s.m.Remove(ctx, mirror.KeySession); err != nil {
		return err
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return nil
}
