package store

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2"

	"github.com/harvestbridge/harvest-bridge/internal/client"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/farms"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/posts"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/profile"
	"github.com/harvestbridge/harvest-bridge/internal/media"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
	farmsvc "github.com/harvestbridge/harvest-bridge/internal/service/farm"
	postsvc "github.com/harvestbridge/harvest-bridge/internal/service/post"
	profilesvc "github.com/harvestbridge/harvest-bridge/internal/service/profile"
	"github.com/harvestbridge/harvest-bridge/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func apiClient(t *testing.T, token string) *client.Client {
	t.Helper()
	farmStore := farmsvc.NewMemoryStore()
	offloader := media.NewOffloader(media.NewMemory("http://media.test/"))
	router := testutil.Router(testutil.Verifier(), func(api huma.API) {
		farms.Register(api, farmStore, offloader)
		posts.Register(api, postsvc.NewMemoryStore(), farmStore, offloader)
		profile.Register(api, profilesvc.NewMemoryStore(), offloader)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return client.New(srv.Client(), client.WithBaseURL(srv.URL), client.WithToken(token))
}

func TestPostsSlice(t *testing.T) {
	p := NewPosts(apiClient(t, testutil.TokenU1))
	ctx := context.Background()
	in := func(item string) *schema.Post {
		return &schema.Post{Product: schema.Product{Item: item, Quantity: ptr(1.0), Price: ptr(2.0), Unit: "kg"}}
	}

	maize, err := p.Create(ctx, in("Maize"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := p.Create(ctx, in("Beans")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.Fetch(ctx, client.PostQuery{UserID: "U1"}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n := len(p.Snapshot().Items); n != 2 {
		t.Fatalf("expected 2 posts, got %d", n)
	}

	if _, err := p.ToggleFlag(ctx, maize.ID, schema.FlagFavorite); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	for _, item := range p.Snapshot().Items {
		if item.ID == maize.ID && !item.Favorite {
			t.Error("expected the listed post to be favorited")
		}
	}

	if err := p.Delete(ctx, maize.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	st := p.Snapshot()
	if len(st.Items) != 1 || st.Items[0].Product.Item != "Beans" {
		t.Errorf("unexpected items %+v", st.Items)
	}
}

func TestFarmsSliceRejectsInvalidDraft(t *testing.T) {
	f := NewFarms(apiClient(t, testutil.TokenU1))
	_, err := f.Create(context.Background(), &schema.FarmProfile{FarmName: "X"})

	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st := f.Snapshot(); st.Status != StatusFailed || len(st.Items) != 0 {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestFarmsSliceNotFound(t *testing.T) {
	f := NewFarms(apiClient(t, testutil.TokenU1))
	_, err := f.FetchOne(context.Background(), "missing")
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if st := f.Snapshot(); st.Current != nil || st.Status != StatusFailed {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestProfilesSlice(t *testing.T) {
	p := NewProfiles(apiClient(t, testutil.TokenU1))
	ctx := context.Background()

	created, err := p.Create(ctx, &schema.UserProfile{
		Email: "jane@example.com", Username: "jane", FullName: "Jane Doe", Role: schema.RoleFarmer,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.UserID != "U1" {
		t.Fatalf("expected U1, got %q", created.UserID)
	}

	next, err := p.Fetch(ctx, client.ProfileQuery{Limit: 10})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if next != "" || len(p.Snapshot().Items) != 1 {
		t.Errorf("expected a single page, got next=%q items=%d", next, len(p.Snapshot().Items))
	}

	if _, err := p.FetchOne(ctx, "U1"); err != nil {
		t.Fatalf("fetch one: %v", err)
	}
	if err := p.Delete(ctx, "U1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if st := p.Snapshot(); st.Current != nil || len(st.Items) != 0 {
		t.Errorf("expected empty slice after delete, got %+v", st)
	}
}

func TestProfilesConcurrentFetchesKeepTheirCursors(t *testing.T) {
	ctx := context.Background()
	profiles := profilesvc.NewMemoryStore()
	for _, uid := range []string{"U1", "U2", "U3"} {
		if _, err := profiles.Create(ctx, uid, schema.UserProfile{
			Email: uid + "@example.com", Username: uid, FullName: "User " + uid, Role: schema.RoleFarmer,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	router := testutil.Router(testutil.Verifier(), func(api huma.API) {
		profile.Register(api, profiles, media.NewOffloader(media.NewMemory("http://media.test/")))
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	p := NewProfiles(client.New(srv.Client(), client.WithBaseURL(srv.URL)))

	queries := []client.ProfileQuery{{Limit: 1}}
	want := []string{}
	for {
		next, err := p.Fetch(ctx, queries[len(queries)-1])
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		want = append(want, next)
		if next == "" {
			break
		}
		queries = append(queries, client.ProfileQuery{Limit: 1, Cursor: next})
	}
	if len(want) != 3 {
		t.Fatalf("expected 3 pages, got cursors %q", want)
	}

	var wg sync.WaitGroup
	for i := range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := queries[i%len(queries)]
			next, err := p.Fetch(ctx, q)
			if err != nil {
				t.Errorf("fetch: %v", err)
				return
			}
			if next != want[i%len(queries)] {
				t.Errorf("query %+v got cursor %q, want %q", q, next, want[i%len(queries)])
			}
		}()
	}
	wg.Wait()
}
