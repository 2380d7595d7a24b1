package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// FirestoreStore implements Service using Firestore with transactions. The
// document id is the user id; email and username uniqueness is checked
// inside the writing transaction.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) col() *firestore.CollectionRef {
	return s.client.Collection(collection)
}

// Create creates a new profile using a transaction to prevent duplicates.
func (s *FirestoreStore) Create(ctx context.Context, userID string, in schema.UserProfile) (*Profile, error) {
	ref := s.col().Doc(userID)
	var result *Profile

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err == nil && doc.Exists() {
			return ErrAlreadyExists
		}
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err := s.checkUnique(tx, userID, in.Email, in.Username); err != nil {
			return err
		}

		p := newProfile(uuid.NewString(), userID, in, timeutil.Now())
		if err := tx.Create(ref, p); err != nil {
			return err
		}
		result = &p
		return nil
	})
	audit(ctx, "create", userID, userID, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get retrieves a profile by user ID.
func (s *FirestoreStore) Get(ctx context.Context, userID string) (*Profile, error) {
	doc, err := s.col().Doc(userID).Get(ctx)
	if err != nil {
		return nil, docError(err)
	}
	return decode(doc)
}

// List returns profiles ordered by document id (the user id).
func (s *FirestoreStore) List(ctx context.Context, filter ListFilter) ([]Profile, error) {
	q := s.col().Query
	if filter.UserID != "" {
		if filter.After != "" && filter.UserID <= filter.After {
			return []Profile{}, nil
		}
		q = q.Where(firestore.DocumentID, "==", s.col().Doc(filter.UserID))
	}
	if filter.Username != "" {
		q = q.Where("username", "==", filter.Username)
	}
	if filter.Email != "" {
		q = q.Where("email", "==", filter.Email)
	}
	q = q.OrderBy(firestore.DocumentID, firestore.Asc)
	if filter.After != "" && filter.UserID == "" {
		q = q.StartAfter(filter.After)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return collect(q.Documents(ctx))
}

// Page returns a window of profiles ordered newest first.
func (s *FirestoreStore) Page(ctx context.Context, skip, limit int) ([]Profile, int64, error) {
	res, err := s.col().NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	cnt, ok := res["total"].(*firestorepb.Value)
	if !ok {
		return nil, 0, fmt.Errorf("count profiles: unexpected result %T", res["total"])
	}

	q := s.col().OrderBy("createdAt", firestore.Desc).Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	profiles, err := collect(q.Documents(ctx))
	if err != nil {
		return nil, 0, err
	}
	return profiles, cnt.GetIntegerValue(), nil
}

// Update replaces the editable fields inside a transaction.
func (s *FirestoreStore) Update(ctx context.Context, userID string, in schema.UserProfile) (*Profile, error) {
	p, err := s.mutate(ctx, userID, func(tx *firestore.Transaction, p *Profile) error {
		if err := s.checkUnique(tx, userID, in.Email, in.Username); err != nil {
			return err
		}
		p.apply(in)
		return nil
	})
	audit(ctx, "update", userID, userID, err)
	return p, err
}

// SetPicture replaces the profile picture URL.
func (s *FirestoreStore) SetPicture(ctx context.Context, userID, url string) (*Profile, error) {
	p, err := s.mutate(ctx, userID, func(_ *firestore.Transaction, p *Profile) error {
		p.ProfilePicture = url
		return nil
	})
	audit(ctx, "update", userID, userID, err)
	return p, err
}

// AddRating appends a rating inside a transaction.
func (s *FirestoreStore) AddRating(ctx context.Context, userID, raterID string, in schema.Rating) (*Profile, error) {
	if userID == raterID {
		audit(ctx, "rate", raterID, userID, ErrSelfRating)
		return nil, ErrSelfRating
	}
	p, err := s.mutate(ctx, userID, func(_ *firestore.Transaction, p *Profile) error {
		p.Ratings = append(p.Ratings, newRating(raterID, in, timeutil.Now()))
		return nil
	})
	audit(ctx, "rate", raterID, userID, err)
	return p, err
}

// Delete removes a profile using a transaction to ensure it exists.
func (s *FirestoreStore) Delete(ctx context.Context, userID string) (*Profile, error) {
	ref := s.col().Doc(userID)
	var result *Profile

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return docError(err)
		}
		p, err := decode(doc)
		if err != nil {
			return err
		}
		result = p
		if err := tx.Delete(ref); err != nil {
			return err
		}
		return tx.Set(s.client.Collection(tombstoneCollection).Doc(userID), Tombstone{
			UserID:    userID,
			DeletedAt: timeutil.Now(),
		})
	})
	audit(ctx, "delete", userID, userID, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Tombstones lists every pending tombstone.
func (s *FirestoreStore) Tombstones(ctx context.Context) ([]Tombstone, error) {
	docs, err := s.client.Collection(tombstoneCollection).OrderBy("userId", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	out := make([]Tombstone, 0, len(docs))
	for _, doc := range docs {
		var t Tombstone
		if err := doc.DataTo(&t); err != nil {
			return nil, fmt.Errorf("decode tombstone %s: %w", doc.Ref.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ClearTombstone deletes the tombstone in a transaction when deletedAt still
// matches.
func (s *FirestoreStore) ClearTombstone(ctx context.Context, userID string, deletedAt time.Time) error {
	ref := s.client.Collection(tombstoneCollection).Doc(userID)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var t Tombstone
		if err := doc.DataTo(&t); err != nil {
			return fmt.Errorf("decode tombstone %s: %w", userID, err)
		}
		if !t.DeletedAt.Equal(deletedAt) {
			return nil
		}
		return tx.Delete(ref)
	})
}

// mutate loads the profile, applies fn and writes it back in one transaction.
func (s *FirestoreStore) mutate(ctx context.Context, userID string, fn func(*firestore.Transaction, *Profile) error) (*Profile, error) {
	ref := s.col().Doc(userID)
	var result *Profile

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return docError(err)
		}
		p, err := decode(doc)
		if err != nil {
			return err
		}
		if err := fn(tx, p); err != nil {
			return err
		}
		p.UpdatedAt = timeutil.Now()
		if err := tx.Set(ref, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkUnique fails when another user already holds email or username.
func (s *FirestoreStore) checkUnique(tx *firestore.Transaction, userID, email, username string) error {
	checks := []struct {
		field, value string
		err          error
	}{
		{"email", email, ErrEmailTaken},
		{"username", username, ErrUsernameTaken},
	}
	for _, c := range checks {
		docs, err := tx.Documents(s.col().Where(c.field, "==", c.value).Limit(2)).GetAll()
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if doc.Ref.ID != userID {
				return c.err
			}
		}
	}
	return nil
}

func collect(iter *firestore.DocumentIterator) ([]Profile, error) {
	defer iter.Stop()
	profiles := []Profile{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return profiles, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		p, err := decode(doc)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
}

func decode(doc *firestore.DocumentSnapshot) (*Profile, error) {
	var p Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", doc.Ref.ID, err)
	}
	p.UserID = doc.Ref.ID
	return &p, nil
}

func docError(err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

// Compile-time interface check
var _ Service = (*FirestoreStore)(nil)
