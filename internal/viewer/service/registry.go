package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var ErrSessionNotFound = errors.New("session not found")

// ============================================================
// Session Registry
// ============================================================

// Registry хранит сессии по id. Сессия, к которой не обращались дольше ttl, удаляется.
type Registry struct {
	sessions *cache.Cache
	ttl      time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: cache.New(ttl, ttl/2),
		ttl:      ttl,
	}
}

// Issue регистрирует сессию, созданную фабрикой, под новым id.
func (r *Registry) Issue(create func(id string) *Session) *Session {
	s := create(uuid.NewString())
	r.sessions.Set(s.ID, s, r.ttl)
	return s
}

// Resolve находит сессию и продлевает её время жизни.
func (r *Registry) Resolve(id string) (*Session, error) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := v.(*Session)
	r.sessions.Set(id, s, r.ttl)
	return s, nil
}

func (r *Registry) Remove(id string) error {
	if _, ok := r.sessions.Get(id); !ok {
		return ErrSessionNotFound
	}
	r.sessions.Delete(id)
	return nil
}

func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}
