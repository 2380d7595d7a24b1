package profile

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/harvestbridge/harvest-bridge/internal/schema"
	"github.com/harvestbridge/harvest-bridge/internal/testutil"
)

func TestFirestoreDocumentIDIsUserID(t *testing.T) {
	client := testutil.Firestore(t)
	store := NewFirestoreStore(client)
	ctx := context.Background()

	if _, err := store.Create(ctx, "user-123", jane("a")); err != nil {
		t.Fatalf("create: %v", err)
	}
	doc, err := client.Collection(collection).Doc("user-123").Get(ctx)
	if err != nil {
		t.Fatalf("read raw document: %v", err)
	}
	if email, _ := doc.Data()["email"].(string); email != "janea@example.com" {
		t.Errorf("expected stored email, got %v", doc.Data()["email"])
	}
}

func TestFirestoreConcurrentRatingsAreNotLost(t *testing.T) {
	store := NewFirestoreStore(testutil.Firestore(t))
	ctx := context.Background()
	if _, err := store.Create(ctx, "farmer", jane("f")); err != nil {
		t.Fatalf("create: %v", err)
	}

	const raters = 5
	var wg sync.WaitGroup
	errs := make(chan error, raters)
	for i := range raters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AddRating(ctx, "farmer", fmt.Sprintf("buyer-%d", i), schema.Rating{FarmerRating: ptr(4.0)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("rate: %v", err)
		}
	}

	p, err := store.Get(ctx, "farmer")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.RatingCount() != raters {
		t.Errorf("expected %d ratings, got %d", raters, p.RatingCount())
	}
}

func TestFirestoreConcurrentCreatesClaimUsernameOnce(t *testing.T) {
	store := NewFirestoreStore(testutil.Firestore(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, uid := range []string{"U1", "U2"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			in := jane(uid)
			in.Username = "shared.name"
			_, err := store.Create(ctx, uid, in)
			results <- err
		}(uid)
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one create to win, got %d", ok)
	}
}
