// Package store keeps client-side collections of API documents: a list, the
// document being viewed and the status of the last operation. Every change
// goes through a thunk that calls the API and then applies a reducer.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// defaultFetchTimeout bounds a shared request once it is detached from the
// caller that started it.
const defaultFetchTimeout = 30 * time.Second

// Keyed is implemented by documents held in a Slice.
type Keyed interface {
	Key() string
}

// Status of the most recent operation on a Slice.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// State is a copy of a Slice's contents.
type State[T Keyed] struct {
	Items   []T
	Current *T
	Status  Status
	Err     string
}

// Slice is a mutex-guarded collection of documents.
//
// Concurrent loads with the same key share one request. The request runs
// detached from its callers' contexts, bounded by a timeout, and applies its
// own result; a caller that gives up only stops waiting. A list load whose
// key is no longer the most recently issued one is discarded, so the last
// load issued wins regardless of completion order.
type Slice[T Keyed] struct {
	mu     sync.Mutex
	state  State[T]
	latest string
	group  singleflight.Group

	fetchTimeout time.Duration
}

// NewSlice returns an idle, empty Slice.
func NewSlice[T Keyed]() *Slice[T] {
	return &Slice[T]{state: State[T]{Status: StatusIdle}, fetchTimeout: defaultFetchTimeout}
}

// Snapshot returns a copy safe to read without locking.
func (s *Slice[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Items = slices.Clone(s.state.Items)
	if s.state.Current != nil {
		cur := *s.state.Current
		out.Current = &cur
	}
	return out
}

// Load runs fetch and replaces Items with its result. Callers passing the
// same key while a fetch is in flight wait for that fetch instead of
// starting another.
func (s *Slice[T]) Load(ctx context.Context, key string, fetch func(context.Context) ([]T, error)) error {
	_, err := loadPage(ctx, s, key, func(ctx context.Context) ([]T, struct{}, error) {
		items, err := fetch(ctx)
		return items, struct{}{}, err
	})
	return err
}

type page[T, M any] struct {
	items []T
	meta  M
}

// loadPage is Load for fetches that return page metadata, such as a cursor,
// alongside the items. Every caller sharing a request gets that request's
// metadata.
func loadPage[T Keyed, M any](ctx context.Context, s *Slice[T], key string, fetch func(context.Context) ([]T, M, error)) (M, error) {
	s.mu.Lock()
	s.latest = key
	s.state.Status = StatusLoading
	s.state.Err = ""
	s.mu.Unlock()

	ch := s.group.DoChan("list:"+key, func() (any, error) {
		fctx, cancel := s.detach(ctx)
		defer cancel()
		items, meta, err := fetch(fctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.latest == key {
			if err != nil {
				s.fail(err)
			} else {
				s.state.Items = slices.Clone(items)
				s.state.Status = StatusSucceeded
			}
		}
		return page[T, M]{items: items, meta: meta}, err
	})

	var zero M
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		p, _ := res.Val.(page[T, M])
		return p.meta, nil
	}
}

// LoadOne runs fetch and makes its result Current, refreshing the listed
// copy when present.
func (s *Slice[T]) LoadOne(ctx context.Context, id string, fetch func(context.Context) (*T, error)) (*T, error) {
	s.begin()
	ch := s.group.DoChan("one:"+id, func() (any, error) {
		fctx, cancel := s.detach(ctx)
		defer cancel()
		doc, err := fetch(fctx)
		return s.finish(doc, err, func(doc T) {
			s.state.Current = &doc
			s.splice(doc)
		})
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		doc, _ := res.Val.(*T)
		if doc == nil {
			return nil, nil
		}
		out := *doc
		return &out, nil
	}
}

// detach keeps ctx's values but not its cancellation, so one caller leaving
// does not abort a request others are waiting on.
func (s *Slice[T]) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
}

// Add runs create and appends the new document.
func (s *Slice[T]) Add(ctx context.Context, create func(context.Context) (*T, error)) (*T, error) {
	s.begin()
	doc, err := create(ctx)
	return s.finish(doc, err, func(doc T) {
		s.state.Items = append(s.state.Items, doc)
	})
}

// Replace runs update and swaps the document with the same key in Items
// and Current.
func (s *Slice[T]) Replace(ctx context.Context, update func(context.Context) (*T, error)) (*T, error) {
	s.begin()
	doc, err := update(ctx)
	return s.finish(doc, err, func(doc T) {
		s.splice(doc)
		if s.state.Current != nil && (*s.state.Current).Key() == doc.Key() {
			s.state.Current = &doc
		}
	})
}

// Remove runs del and drops the document with key id, clearing Current
// when it was that document.
func (s *Slice[T]) Remove(ctx context.Context, id string, del func(context.Context) error) error {
	s.begin()
	err := del(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fail(err)
		return err
	}
	s.state.Items = slices.DeleteFunc(s.state.Items, func(v T) bool { return v.Key() == id })
	if s.state.Current != nil && (*s.state.Current).Key() == id {
		s.state.Current = nil
	}
	s.state.Status = StatusSucceeded
	return nil
}

func (s *Slice[T]) begin() {
	s.mu.Lock()
	s.state.Status = StatusLoading
	s.state.Err = ""
	s.mu.Unlock()
}

func (s *Slice[T]) finish(doc *T, err error, reduce func(T)) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fail(err)
		return nil, err
	}
	if doc == nil {
		s.state.Status = StatusSucceeded
		return nil, nil
	}
	reduce(*doc)
	s.state.Status = StatusSucceeded
	out := *doc
	return &out, nil
}

// splice replaces the listed document sharing doc's key. Callers hold mu.
func (s *Slice[T]) splice(doc T) {
	if i := slices.IndexFunc(s.state.Items, func(v T) bool { return v.Key() == doc.Key() }); i >= 0 {
		s.state.Items[i] = doc
	}
}

func (s *Slice[T]) fail(err error) {
	s.state.Status = StatusFailed
	s.state.Err = err.Error()
}
