package local

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	errs "github.com/jrsteele09/takemethere/internal/errors"
)

// UserStore persists local accounts. Lookups by email are case-insensitive.
type UserStore interface {
	Upsert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

var _ UserStore = (*MemoryStore)(nil)

type MemoryStore struct {
	users    map[string]*User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		emailIds: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryStore) Upsert(_ context.Context, user *User) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = normalizeEmail(user.Email)
	if id, ok := s.emailIds[user.Email]; ok && id != user.ID {
		return errs.ErrUserExists
	}
	if prev, ok := s.users[user.ID]; ok && prev.Email != user.Email {
		delete(s.emailIds, prev.Email)
	}
	cp := *user
	s.users[user.ID] = &cp
	s.emailIds[user.Email] = user.ID
	return nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	id, ok := s.emailIds[normalizeEmail(email)]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, offset, limit int) ([]*User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	all := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })

	if offset >= len(all) {
		return []*User{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	u, ok := s.users[id]
	if !ok {
		return errs.ErrUserNotFound
	}
	delete(s.emailIds, u.Email)
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
