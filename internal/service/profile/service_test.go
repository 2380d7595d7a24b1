package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/harvestbridge/harvest-bridge/internal/schema"
	"github.com/harvestbridge/harvest-bridge/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func jane(suffix string) schema.UserProfile {
	return schema.UserProfile{
		Email:       "jane" + suffix + "@example.com",
		Username:    "jane.doe" + suffix,
		FullName:    "Jane Doe",
		Bio:         "Maize grower",
		Role:        schema.RoleFarmer,
		PhoneNumber: "+15551234567",
		Country:     "Kenya",
		SocialMediaLinks: schema.SocialMediaLinks{
			Website: "https://janefarm.example.com",
		},
	}
}

func ids(profiles []Profile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.UserID
	}
	return out
}

func runServiceTests(t *testing.T, newStore func(t *testing.T) Service) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.Create(ctx, "U1", jane("1"))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID == "" || created.UserID != "U1" {
			t.Fatalf("unexpected identity: %+v", created)
		}
		if created.Verified {
			t.Error("expected verified false")
		}
		got, err := s.Get(ctx, "U1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if diff := cmp.Diff(created, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("stored profile mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Uniqueness", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Create(ctx, "U1", jane("1")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.Create(ctx, "U1", jane("2")); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}

		sameEmail := jane("2")
		sameEmail.Email = "jane1@example.com"
		if _, err := s.Create(ctx, "U2", sameEmail); !errors.Is(err, ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}

		sameUsername := jane("2")
		sameUsername.Username = "jane.doe1"
		if _, err := s.Create(ctx, "U2", sameUsername); !errors.Is(err, ErrUsernameTaken) {
			t.Errorf("expected ErrUsernameTaken, got %v", err)
		}

		if _, err := s.Create(ctx, "U2", jane("2")); err != nil {
			t.Fatalf("create: %v", err)
		}
		steal := jane("2")
		steal.Email = "jane1@example.com"
		if _, err := s.Update(ctx, "U2", steal); !errors.Is(err, ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken on update, got %v", err)
		}
	})

	t.Run("UpdateKeepsRatings", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Create(ctx, "U1", jane("1")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.AddRating(ctx, "U1", "U2", schema.Rating{FarmerRating: ptr(4.0)}); err != nil {
			t.Fatalf("rate: %v", err)
		}

		in := jane("1")
		in.FullName = "Jane Smith"
		in.Bio = ""
		updated, err := s.Update(ctx, "U1", in)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.FullName != "Jane Smith" || updated.Bio != "" {
			t.Errorf("unexpected update result: %+v", updated)
		}
		if updated.RatingCount() != 1 {
			t.Errorf("expected rating to survive update, got %d", updated.RatingCount())
		}
		if _, err := s.Update(ctx, "missing", in); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Ratings", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Create(ctx, "U1", jane("1")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.AddRating(ctx, "U1", "U1", schema.Rating{FarmerRating: ptr(5.0)}); !errors.Is(err, ErrSelfRating) {
			t.Errorf("expected ErrSelfRating, got %v", err)
		}
		if _, err := s.AddRating(ctx, "U1", "U2", schema.Rating{FarmerRating: ptr(4.0), Review: "Good maize"}); err != nil {
			t.Fatalf("rate: %v", err)
		}
		p, err := s.AddRating(ctx, "U1", "U3", schema.Rating{FarmerRating: ptr(3.5)})
		if err != nil {
			t.Fatalf("rate: %v", err)
		}
		if p.RatingCount() != 2 {
			t.Fatalf("expected 2 ratings, got %d", p.RatingCount())
		}
		if p.AverageRating() != 3.75 {
			t.Errorf("expected average 3.75, got %v", p.AverageRating())
		}
		if p.Ratings[0].RaterID != "U2" || p.Ratings[0].Review != "Good maize" {
			t.Errorf("unexpected first rating: %+v", p.Ratings[0])
		}
		if _, err := s.AddRating(ctx, "missing", "U2", schema.Rating{FarmerRating: ptr(1.0)}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetPicture", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Create(ctx, "U1", jane("1")); err != nil {
			t.Fatalf("create: %v", err)
		}
		p, err := s.SetPicture(ctx, "U1", "https://img.example.com/me.png")
		if err != nil {
			t.Fatalf("set picture: %v", err)
		}
		if p.ProfilePicture != "https://img.example.com/me.png" {
			t.Errorf("unexpected picture %q", p.ProfilePicture)
		}
	})

	t.Run("ListKeyset", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i, uid := range []string{"U3", "U1", "U2"} {
			if _, err := s.Create(ctx, uid, jane(string(rune('a'+i)))); err != nil {
				t.Fatalf("create: %v", err)
			}
		}

		first, err := s.List(ctx, ListFilter{Limit: 2})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if diff := cmp.Diff([]string{"U1", "U2"}, ids(first)); diff != "" {
			t.Errorf("first page mismatch (-want +got):\n%s", diff)
		}
		rest, err := s.List(ctx, ListFilter{After: "U2", Limit: 2})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if diff := cmp.Diff([]string{"U3"}, ids(rest)); diff != "" {
			t.Errorf("second page mismatch (-want +got):\n%s", diff)
		}

		byUsername, err := s.List(ctx, ListFilter{Username: "jane.doeb"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if diff := cmp.Diff([]string{"U1"}, ids(byUsername)); diff != "" {
			t.Errorf("username filter mismatch (-want +got):\n%s", diff)
		}
		byUser, err := s.List(ctx, ListFilter{UserID: "U3"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if diff := cmp.Diff([]string{"U3"}, ids(byUser)); diff != "" {
			t.Errorf("userId filter mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Page", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i, uid := range []string{"U1", "U2", "U3"} {
			if _, err := s.Create(ctx, uid, jane(string(rune('a'+i)))); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		page, total, err := s.Page(ctx, 2, 2)
		if err != nil {
			t.Fatalf("page: %v", err)
		}
		if total != 3 || len(page) != 1 {
			t.Errorf("expected 1 profile of 3, got %d of %d", len(page), total)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Create(ctx, "U1", jane("1")); err != nil {
			t.Fatalf("create: %v", err)
		}
		deleted, err := s.Delete(ctx, "U1")
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if deleted.UserID != "U1" {
			t.Errorf("unexpected deleted profile %+v", deleted)
		}
		if _, err := s.Get(ctx, "U1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.Delete(ctx, "U1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("Tombstones", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i, uid := range []string{"U1", "U2"} {
			if _, err := s.Create(ctx, uid, jane(string(rune('a'+i)))); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
		none, err := s.Tombstones(ctx)
		if err != nil {
			t.Fatalf("tombstones: %v", err)
		}
		if len(none) != 0 {
			t.Fatalf("expected no tombstones before a delete, got %+v", none)
		}

		before := time.Now().Add(-time.Second)
		if _, err := s.Delete(ctx, "U1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		stones, err := s.Tombstones(ctx)
		if err != nil {
			t.Fatalf("tombstones: %v", err)
		}
		if len(stones) != 1 || stones[0].UserID != "U1" {
			t.Fatalf("expected a tombstone for U1, got %+v", stones)
		}
		if stones[0].DeletedAt.Before(before) {
			t.Errorf("deletedAt %v is older than the delete", stones[0].DeletedAt)
		}

		if err := s.ClearTombstone(ctx, "U1", stones[0].DeletedAt.Add(-time.Minute)); err != nil {
			t.Fatalf("clear stale: %v", err)
		}
		if stones, _ := s.Tombstones(ctx); len(stones) != 1 {
			t.Errorf("a mismatched deletedAt must keep the tombstone, got %+v", stones)
		}
		if err := s.ClearTombstone(ctx, "U1", stones[0].DeletedAt); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if stones, _ := s.Tombstones(ctx); len(stones) != 0 {
			t.Errorf("expected the tombstone to be cleared, got %+v", stones)
		}
		if err := s.ClearTombstone(ctx, "U9", time.Now()); err != nil {
			t.Errorf("clearing a missing tombstone: %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runServiceTests(t, func(*testing.T) Service { return NewMemoryStore() })
}

func TestMongoStore(t *testing.T) {
	runServiceTests(t, func(t *testing.T) Service {
		s := NewMongoStore(testutil.Mongo(t))
		if err := s.EnsureIndexes(context.Background()); err != nil {
			t.Fatalf("ensure indexes: %v", err)
		}
		return s
	})
}

func TestFirestoreStore(t *testing.T) {
	runServiceTests(t, func(t *testing.T) Service {
		return NewFirestoreStore(testutil.Firestore(t))
	})
}

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []float64
		want    float64
	}{
		{"none", nil, 0},
		{"one", []float64{4}, 4},
		{"rounded", []float64{5, 4, 4}, 4.33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Profile{}
			for _, r := range tt.ratings {
				p.Ratings = append(p.Ratings, Rating{FarmerRating: r})
			}
			if got := p.AverageRating(); got != tt.want {
				t.Errorf("AverageRating() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrAlreadyExists, "already_exists"},
		{ErrEmailTaken, "conflict"},
		{ErrUsernameTaken, "conflict"},
		{ErrNotFound, "not_found"},
		{ErrSelfRating, "self_rating"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
