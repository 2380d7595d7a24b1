package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/harvestbridge/harvest-bridge/internal/platform/cache"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// countingStore counts Get calls that reach the backing store.
type countingStore struct {
	Service
	gets int
}

func (c *countingStore) Get(ctx context.Context, userID string) (*Profile, error) {
	c.gets++
	return c.Service.Get(ctx, userID)
}

// pausingStore signals once Get has read the store, then waits for resume
// before returning.
type pausingStore struct {
	Service
	read   chan struct{}
	resume chan struct{}
}

func (p *pausingStore) Get(ctx context.Context, userID string) (*Profile, error) {
	profile, err := p.Service.Get(ctx, userID)
	if p.read != nil {
		close(p.read)
		<-p.resume
	}
	return profile, err
}

// failingCache fails every call.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (failingCache) Delete(context.Context, ...string) error { return errors.New("down") }

func TestCachedGetReadsThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Service: NewMemoryStore()}
	c := NewCached(backing, cache.NewMemory(), time.Minute)

	created, err := c.Create(ctx, "U1", jane("1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for range 3 {
		got, err := c.Get(ctx, "U1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if diff := cmp.Diff(created, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("cached profile mismatch (-want +got):\n%s", diff)
		}
	}
	if backing.gets != 1 {
		t.Errorf("expected 1 backing read, got %d", backing.gets)
	}
}

func TestCachedInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{Service: NewMemoryStore()}
	c := NewCached(backing, cache.NewMemory(), time.Minute)

	if _, err := c.Create(ctx, "U1", jane("1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.Get(ctx, "U1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := c.AddRating(ctx, "U1", "U2", schema.Rating{FarmerRating: ptr(5.0)}); err != nil {
		t.Fatalf("rate: %v", err)
	}
	got, err := c.Get(ctx, "U1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RatingCount() != 1 {
		t.Errorf("expected fresh profile with 1 rating, got %d", got.RatingCount())
	}
	if backing.gets != 2 {
		t.Errorf("expected 2 backing reads, got %d", backing.gets)
	}

	if _, err := c.Delete(ctx, "U1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "U1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCachedReadRacingWriteDoesNotPinStaleEntry(t *testing.T) {
	ctx := context.Background()
	backing := &pausingStore{Service: NewMemoryStore()}
	c := NewCached(backing, cache.NewMemory(), time.Minute)
	if _, err := c.Create(ctx, "U1", jane("1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	backing.read, backing.resume = make(chan struct{}), make(chan struct{})
	stale := make(chan *Profile)
	go func() {
		p, _ := c.Get(ctx, "U1")
		stale <- p
	}()
	<-backing.read
	backing.read = nil

	in := jane("1")
	in.Bio = "Now growing sorghum"
	if _, err := c.Update(ctx, "U1", in); err != nil {
		t.Fatalf("update: %v", err)
	}
	close(backing.resume)
	if p := <-stale; p == nil || p.Bio != "Maize grower" {
		t.Fatalf("expected the racing read to see the old profile, got %+v", p)
	}

	got, err := c.Get(ctx, "U1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Bio != "Now growing sorghum" {
		t.Errorf("expected the updated bio, got %q", got.Bio)
	}
}

func TestCachedSurvivesCacheFailure(t *testing.T) {
	ctx := context.Background()
	c := NewCached(NewMemoryStore(), failingCache{}, time.Minute)
	if _, err := c.Create(ctx, "U1", jane("1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.Get(ctx, "U1"); err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if _, err := c.SetPicture(ctx, "U1", "https://img.example.com/a.png"); err != nil {
		t.Fatalf("set picture: %v", err)
	}
}
