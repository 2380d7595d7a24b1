package media

import (
	"context"
	"net/http"
	"strings"
	"sync"
)

// Memory keeps objects in process and serves them over HTTP. It backs local
// development and tests.
type Memory struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemory returns a Memory store whose URLs start with baseURL, e.g.
// "http://localhost:8080/media/".
func NewMemory(baseURL string) *Memory {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Memory{baseURL: baseURL, objects: make(map[string]Object)}
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, obj Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj.Data = append([]byte(nil), obj.Data...)
	m.objects[obj.Key] = obj
	return m.baseURL + obj.Key, nil
}

// Key implements Store.
func (m *Memory) Key(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, m.baseURL)
	return key, ok && key != ""
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, url string) error {
	key, ok := m.Key(url)
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Has reports whether the object behind url is stored.
func (m *Memory) Has(url string) bool {
	key, ok := m.Key(url)
	if !ok {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok = m.objects[key]
	return ok
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ServeHTTP serves stored objects by key; mount it with http.StripPrefix.
func (m *Memory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(obj.Data)
}

var _ Store = (*Memory)(nil)
