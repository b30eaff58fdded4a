// Package memory is an in-process authd.UserStore for tests and local
// development. Records are copied on every read and write.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/authd"
)

// Store keeps users in maps guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*authd.User
	byEmail map[string]string
	now     func() time.Time
}

func New() *Store {
	return &Store{
		byID:    make(map[string]*authd.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// WithClock sets the time source used for UpdatedAt stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*authd.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[authd.NormalizeEmail(email)]
	if !ok {
		return nil, authd.ErrUserNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*authd.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, authd.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *Store) Create(ctx context.Context, u *authd.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := authd.NormalizeEmail(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return authd.ErrUserExists
	}
	if _, ok := s.byID[u.ID]; ok {
		return authd.ErrUserExists
	}
	c := clone(u)
	c.Email = email
	s.byID[c.ID] = c
	s.byEmail[email] = c.ID
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.update(ctx, id, func(u *authd.User) {
		u.PasswordHash = passwordHash
	})
}

func (s *Store) MarkVerified(ctx context.Context, id string) error {
	return s.update(ctx, id, func(u *authd.User) {
		u.Verified = true
	})
}

func (s *Store) RecordLogin(ctx context.Context, id, lastIP string, history []authd.IPEntry, at time.Time) error {
	return s.update(ctx, id, func(u *authd.User) {
		u.LastLogin = at
		u.LastIP = lastIP
		u.IPHistory = slices.Clone(history)
	})
}

func (s *Store) UpdateIPHistory(ctx context.Context, id string, history []authd.IPEntry) error {
	return s.update(ctx, id, func(u *authd.User) {
		u.IPHistory = slices.Clone(history)
	})
}

// ScanIPHistories visits users in id order. fn sees copies, so it may call
// back into the store.
func (s *Store) ScanIPHistories(ctx context.Context, batchSize int, fn func([]authd.IPHistoryRecord) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	for start := 0; start < len(ids); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(ids))

		s.mu.RLock()
		batch := make([]authd.IPHistoryRecord, 0, end-start)
		for _, id := range ids[start:end] {
			u, ok := s.byID[id]
			if !ok {
				continue
			}
			batch = append(batch, authd.IPHistoryRecord{UserID: id, Entries: slices.Clone(u.IPHistory)})
		}
		s.mu.RUnlock()

		if len(batch) == 0 {
			continue
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

// Len reports how many users are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) update(ctx context.Context, id string, mutate func(*authd.User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return authd.ErrUserNotFound
	}
	mutate(u)
	u.UpdatedAt = s.now()
	return nil
}

func clone(u *authd.User) *authd.User {
	if u == nil {
		return nil
	}
	c := *u
	c.IPHistory = slices.Clone(u.IPHistory)
	return &c
}

var _ authd.UserStore = (*Store)(nil)
