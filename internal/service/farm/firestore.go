package farm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// FirestoreStore implements Service using Firestore with transactions.
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

// Create writes a new farm document with a generated id.
func (s *FirestoreStore) Create(ctx context.Context, userID string, in schema.FarmProfile) (*Farm, error) {
	ref := s.col().NewDoc()
	f := newFarm(ref.ID, userID, in, timeutil.Now())
	_, err := ref.Create(ctx, f)
	audit(ctx, "create", userID, f.ID, err)
	if err != nil {
		return nil, fmt.Errorf("create farm: %w", err)
	}
	return &f, nil
}

// Get retrieves a farm by id.
func (s *FirestoreStore) Get(ctx context.Context, id string) (*Farm, error) {
	doc, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, docError(err)
	}
	return decode(doc)
}

// List returns one page of farms and the total matching count.
func (s *FirestoreStore) List(ctx context.Context, filter ListFilter) ([]Farm, int64, error) {
	q := s.col().Query
	if filter.UserID != "" {
		q = q.Where("userId", "==", filter.UserID)
	}

	total, err := count(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	page := q.OrderBy("createdAt", firestore.Desc).Offset(filter.Skip)
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	iter := page.Documents(ctx)
	defer iter.Stop()

	farms := []Farm{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list farms: %w", err)
		}
		f, err := decode(doc)
		if err != nil {
			return nil, 0, err
		}
		farms = append(farms, *f)
	}
	return farms, total, nil
}

// Replace overwrites the caller's farm inside a transaction.
func (s *FirestoreStore) Replace(ctx context.Context, userID, id string, in schema.FarmProfile) (*Farm, error) {
	ref := s.col().Doc(id)
	var result *Farm

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		f, err := s.owned(tx, ref, userID)
		if err != nil {
			return err
		}
		f.apply(in)
		f.UpdatedAt = timeutil.Now()
		if err := tx.Set(ref, f); err != nil {
			return err
		}
		result = f
		return nil
	})
	audit(ctx, "update", userID, id, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the caller's farm inside a transaction.
func (s *FirestoreStore) Delete(ctx context.Context, userID, id string) (*Farm, error) {
	ref := s.col().Doc(id)
	var result *Farm

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		f, err := s.owned(tx, ref, userID)
		if err != nil {
			return err
		}
		result = f
		return tx.Delete(ref)
	})
	audit(ctx, "delete", userID, id, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteByOwner removes the farms of userID created at or before before with
// a bulk writer. The createdAt bound is applied after the userId query so no
// composite index is needed.
func (s *FirestoreStore) DeleteByOwner(ctx context.Context, userID string, before time.Time) (int64, []string, error) {
	docs, err := s.col().Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, nil, fmt.Errorf("find farms of %s: %w", userID, err)
	}

	var doomed []*Farm
	for _, doc := range docs {
		f, err := decode(doc)
		if err != nil {
			return 0, nil, err
		}
		if !f.CreatedAt.After(before) {
			doomed = append(doomed, f)
		}
	}
	if len(doomed) == 0 {
		return 0, nil, nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(doomed))
	for _, f := range doomed {
		job, err := bw.Delete(s.col().Doc(f.ID))
		if err != nil {
			bw.End()
			return 0, nil, fmt.Errorf("queue farm delete: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var deleted int64
	var images []string
	var errs []error
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, fmt.Errorf("delete farm: %w", err))
			continue
		}
		deleted++
		images = append(images, doomed[i].FarmImages...)
	}
	return deleted, images, errors.Join(errs...)
}

func (s *FirestoreStore) owned(tx *firestore.Transaction, ref *firestore.DocumentRef, userID string) (*Farm, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		return nil, docError(err)
	}
	f, err := decode(doc)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, ErrNotFound
	}
	return f, nil
}

func decode(doc *firestore.DocumentSnapshot) (*Farm, error) {
	var f Farm
	if err := doc.DataTo(&f); err != nil {
		return nil, fmt.Errorf("decode farm %s: %w", doc.Ref.ID, err)
	}
	f.ID = doc.Ref.ID
	return &f, nil
}

func docError(err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func count(ctx context.Context, q firestore.Query) (int64, error) {
	res, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count farms: %w", err)
	}
	v, ok := res["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count farms: unexpected result %T", res["total"])
	}
	return v.GetIntegerValue(), nil
}

var _ Service = (*FirestoreStore)(nil)
