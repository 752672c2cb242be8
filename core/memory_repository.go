package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryAccountStore is an in-process AccountStore for tests and
// STORE_DRIVER=memory. It enforces the same uniqueness rule as the
// accounts table: usernames are unique among user records only.
type MemoryAccountStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Principal
	now    func() time.Time
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{byID: make(map[int64]*Principal), now: time.Now}
}

func copyPrincipal(p *Principal) *Principal {
	c := *p
	c.Authorities = p.Authorities.Clone()
	return &c
}

// resolve must be called with mu held.
func (s *MemoryAccountStore) resolve(username string) *Principal {
	var found *Principal
	for _, p := range s.byID {
		if p.Username != username {
			continue
		}
		switch {
		case found == nil:
			found = p
		case p.Kind == KindUser && found.Kind != KindUser:
			found = p
		case p.Kind == found.Kind && p.ID < found.ID:
			found = p
		}
	}
	return found
}

func (s *MemoryAccountStore) FindByUsername(_ context.Context, username string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.resolve(username)
	if p == nil {
		return nil, ErrAccountNotFound
	}
	return copyPrincipal(p), nil
}

func (s *MemoryAccountStore) ExistsUser(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existsUserLocked(username), nil
}

func (s *MemoryAccountStore) existsUserLocked(username string) bool {
	for _, p := range s.byID {
		if p.Kind == KindUser && p.Username == username {
			return true
		}
	}
	return false
}

func (s *MemoryAccountStore) Create(_ context.Context, p *Principal) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Kind == KindUser && s.existsUserLocked(p.Username) {
		return nil, ErrUsernameTaken
	}
	s.nextID++
	stored := copyPrincipal(p)
	stored.ID = s.nextID
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt
	if stored.Authorities == nil {
		stored.Authorities = NewRoleSet()
	}
	s.byID[stored.ID] = stored
	return copyPrincipal(stored), nil
}

func (s *MemoryAccountStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrAccountNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryAccountStore) List(_ context.Context, page, perPage int) ([]AccountSummary, int, error) {
	start, err := pageOffset(page, perPage)
	if err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	total := len(ids)
	if start >= total {
		return []AccountSummary{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	items := make([]AccountSummary, 0, end-start)
	for _, id := range ids[start:end] {
		items = append(items, s.byID[id].Summary())
	}
	return items, total, nil
}

func (s *MemoryAccountStore) UpdateAuthorities(_ context.Context, username string, mutate func(RoleSet)) (RoleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.resolve(username)
	if p == nil {
		return nil, ErrAccountNotFound
	}
	mutate(p.Authorities)
	p.UpdatedAt = s.now()
	return p.Authorities.Clone(), nil
}

func (s *MemoryAccountStore) HasAdmin(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Authorities.Has(RoleAdmin) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryAccountStore) Ping(context.Context) error { return nil }
