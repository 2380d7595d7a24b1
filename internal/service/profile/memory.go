package profile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// MemoryStore implements Service in memory for unit tests and local runs.
type MemoryStore struct {
	mu         sync.RWMutex
	profiles   map[string]Profile
	tombstones map[string]time.Time
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile), tombstones: make(map[string]time.Time)}
}

func (m *MemoryStore) Create(_ context.Context, userID string, in schema.UserProfile) (*Profile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[userID]; exists {
		return nil, ErrAlreadyExists
	}
	if err := m.checkUnique(userID, in.Email, in.Username); err != nil {
		return nil, err
	}
	p := newProfile(uuid.NewString(), userID, in, timeutil.Now())
	m.profiles[userID] = p
	return clone(p), nil
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Profile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]Profile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	rows := m.sorted(func(a, b *Profile) bool { return a.UserID < b.UserID })
	out := []Profile{}
	for _, p := range rows {
		switch {
		case filter.UserID != "" && p.UserID != filter.UserID,
			filter.Username != "" && p.Username != filter.Username,
			filter.Email != "" && p.Email != filter.Email,
			filter.After != "" && p.UserID <= filter.After:
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Page(_ context.Context, skip, limit int) ([]Profile, int64, error) {
	if m.Err != nil {
		return nil, 0, m.Err
	}
	rows := m.sorted(func(a, b *Profile) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.UserID < b.UserID
	})
	total := int64(len(rows))
	if skip >= len(rows) {
		return []Profile{}, total, nil
	}
	rows = rows[skip:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, total, nil
}

func (m *MemoryStore) Update(_ context.Context, userID string, in schema.UserProfile) (*Profile, error) {
	return m.mutate(userID, func(p *Profile) error {
		if err := m.checkUnique(userID, in.Email, in.Username); err != nil {
			return err
		}
		p.apply(in)
		return nil
	})
}

func (m *MemoryStore) SetPicture(_ context.Context, userID, url string) (*Profile, error) {
	return m.mutate(userID, func(p *Profile) error {
		p.ProfilePicture = url
		return nil
	})
}

func (m *MemoryStore) AddRating(_ context.Context, userID, raterID string, in schema.Rating) (*Profile, error) {
	if userID == raterID {
		return nil, ErrSelfRating
	}
	return m.mutate(userID, func(p *Profile) error {
		p.Ratings = append(p.Ratings, newRating(raterID, in, timeutil.Now()))
		return nil
	})
}

func (m *MemoryStore) Delete(_ context.Context, userID string) (*Profile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.profiles, userID)
	m.tombstones[userID] = timeutil.Now()
	return clone(p), nil
}

func (m *MemoryStore) Tombstones(_ context.Context) ([]Tombstone, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tombstone, 0, len(m.tombstones))
	for uid, at := range m.tombstones {
		out = append(out, Tombstone{UserID: uid, DeletedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) ClearTombstone(_ context.Context, userID string, deletedAt time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if at, ok := m.tombstones[userID]; ok && at.Equal(deletedAt) {
		delete(m.tombstones, userID)
	}
	return nil
}

// mutate runs fn on a copy of the profile under the write lock and stores it
// only when fn succeeds.
func (m *MemoryStore) mutate(userID string, fn func(*Profile) error) (*Profile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	p := clone(stored)
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = timeutil.Now()
	m.profiles[userID] = *p
	return clone(*p), nil
}

// checkUnique must be called with the lock held.
func (m *MemoryStore) checkUnique(userID, email, username string) error {
	for id, p := range m.profiles {
		if id == userID {
			continue
		}
		if p.Email == email {
			return ErrEmailTaken
		}
		if p.Username == username {
			return ErrUsernameTaken
		}
	}
	return nil
}

func (m *MemoryStore) sorted(less func(a, b *Profile) bool) []Profile {
	m.mu.RLock()
	rows := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		rows = append(rows, *clone(p))
	}
	m.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
	return rows
}

func clone(p Profile) *Profile {
	p.Ratings = append([]Rating{}, p.Ratings...)
	return &p
}

var _ Service = (*MemoryStore)(nil)
