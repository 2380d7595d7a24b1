package farm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// MemoryStore is an in-memory Service for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	farms map[string]Farm
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{farms: make(map[string]Farm)}
}

func (m *MemoryStore) Create(_ context.Context, userID string, in schema.FarmProfile) (*Farm, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f := newFarm(uuid.NewString(), userID, in, timeutil.Now())
	m.farms[f.ID] = f
	return clone(f), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Farm, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.farms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(f), nil
}

func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]Farm, int64, error) {
	if m.Err != nil {
		return nil, 0, m.Err
	}
	m.mu.RLock()
	matched := make([]Farm, 0, len(m.farms))
	for _, f := range m.farms {
		if filter.UserID == "" || f.UserID == filter.UserID {
			matched = append(matched, *clone(f))
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	total := int64(len(matched))
	if filter.Skip >= len(matched) {
		return []Farm{}, total, nil
	}
	matched = matched[filter.Skip:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *MemoryStore) Replace(_ context.Context, userID, id string, in schema.FarmProfile) (*Farm, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.farms[id]
	if !ok || f.UserID != userID {
		return nil, ErrNotFound
	}
	f.apply(in)
	f.UpdatedAt = timeutil.Now()
	m.farms[id] = f
	return clone(f), nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, id string) (*Farm, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.farms[id]
	if !ok || f.UserID != userID {
		return nil, ErrNotFound
	}
	delete(m.farms, id)
	return clone(f), nil
}

func (m *MemoryStore) DeleteByOwner(_ context.Context, userID string, before time.Time) (int64, []string, error) {
	if m.Err != nil {
		return 0, nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	var images []string
	for id, f := range m.farms {
		if f.UserID == userID && !f.CreatedAt.After(before) {
			delete(m.farms, id)
			images = append(images, f.FarmImages...)
			n++
		}
	}
	return n, images, nil
}

func clone(f Farm) *Farm {
	f.CropsGrown = append([]string{}, f.CropsGrown...)
	f.LivestockProduced = append([]string{}, f.LivestockProduced...)
	f.FarmImages = append([]string{}, f.FarmImages...)
	return &f
}

var _ Service = (*MemoryStore)(nil)
