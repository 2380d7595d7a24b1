package post

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
	posts map[string]Post
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[string]Post)}
}

func (m *MemoryStore) Create(_ context.Context, userID string, in schema.Post) (*Post, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := newPost(uuid.NewString(), userID, in, timeutil.Now())
	m.posts[p.ID] = p
	return clone(p), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Post, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]Post, int64, error) {
	if m.Err != nil {
		return nil, 0, m.Err
	}
	m.mu.RLock()
	matched := make([]Post, 0, len(m.posts))
	for _, p := range m.posts {
		if filter.matches(&p) {
			matched = append(matched, *clone(p))
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
		return []Post{}, total, nil
	}
	matched = matched[filter.Skip:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *MemoryStore) Replace(_ context.Context, userID, id string, in schema.Post) (*Post, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	p.apply(in)
	p.UpdatedAt = timeutil.Now()
	m.posts[id] = p
	return clone(p), nil
}

func (m *MemoryStore) Toggle(_ context.Context, userID, id string, flag schema.Flag) (*Post, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if !flag.Valid() {
		return nil, ErrInvalidFlag
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	p.setFlag(flag, !p.Flag(flag))
	p.UpdatedAt = timeutil.Now()
	m.posts[id] = p
	return clone(p), nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, id string) (*Post, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	delete(m.posts, id)
	return clone(p), nil
}

func (m *MemoryStore) DeleteByOwner(_ context.Context, userID string, before time.Time) (int64, []string, error) {
	if m.Err != nil {
		return 0, nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	var images []string
	for id, p := range m.posts {
		if p.UserID == userID && !p.CreatedAt.After(before) {
			delete(m.posts, id)
			images = append(images, p.AddImages...)
			n++
		}
	}
	return n, images, nil
}

func clone(p Post) *Post {
	p.AddImages = append([]string{}, p.AddImages...)
	return &p
}

var _ Service = (*MemoryStore)(nil)
