package post

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

func (s *FirestoreStore) Create(ctx context.Context, userID string, in schema.Post) (*Post, error) {
	ref := s.col().NewDoc()
	p := newPost(ref.ID, userID, in, timeutil.Now())
	_, err := ref.Create(ctx, p)
	audit(ctx, "create", userID, p.ID, err, nil)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &p, nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*Post, error) {
	doc, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, docError(err)
	}
	return decode(doc)
}

func (s *FirestoreStore) List(ctx context.Context, filter ListFilter) ([]Post, int64, error) {
	q := s.col().Query
	if filter.UserID != "" {
		q = q.Where("userId", "==", filter.UserID)
	}
	if filter.FarmID != "" {
		q = q.Where("farmId", "==", filter.FarmID)
	}
	if filter.Status != "" {
		q = q.Where("product.status", "==", string(filter.Status))
	}
	if filter.Pinned != nil {
		q = q.Where("pinned", "==", *filter.Pinned)
	}

	res, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	cnt, ok := res["total"].(*firestorepb.Value)
	if !ok {
		return nil, 0, fmt.Errorf("count posts: unexpected result %T", res["total"])
	}

	page := q.OrderBy("createdAt", firestore.Desc).Offset(filter.Skip)
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	iter := page.Documents(ctx)
	defer iter.Stop()

	posts := []Post{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list posts: %w", err)
		}
		p, err := decode(doc)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	return posts, cnt.GetIntegerValue(), nil
}

func (s *FirestoreStore) Replace(ctx context.Context, userID, id string, in schema.Post) (*Post, error) {
	ref := s.col().Doc(id)
	var result *Post

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		p, err := owned(tx, ref, userID)
		if err != nil {
			return err
		}
		p.apply(in)
		p.UpdatedAt = timeutil.Now()
		if err := tx.Set(ref, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	audit(ctx, "update", userID, id, err, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Toggle reads and flips the flag inside one transaction; Firestore retries
// the transaction on contention.
func (s *FirestoreStore) Toggle(ctx context.Context, userID, id string, flag schema.Flag) (*Post, error) {
	if !flag.Valid() {
		return nil, ErrInvalidFlag
	}
	ref := s.col().Doc(id)
	var result *Post

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		p, err := owned(tx, ref, userID)
		if err != nil {
			return err
		}
		p.setFlag(flag, !p.Flag(flag))
		p.UpdatedAt = timeutil.Now()
		if err := tx.Update(ref, []firestore.Update{
			{Path: string(flag), Value: p.Flag(flag)},
			{Path: "updatedAt", Value: p.UpdatedAt},
		}); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		audit(ctx, "toggle", userID, id, err, nil)
		return nil, err
	}
	audit(ctx, "toggle", userID, id, nil, map[string]any{"flag": string(flag), "value": result.Flag(flag)})
	return result, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, userID, id string) (*Post, error) {
	ref := s.col().Doc(id)
	var result *Post

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		p, err := owned(tx, ref, userID)
		if err != nil {
			return err
		}
		result = p
		return tx.Delete(ref)
	})
	audit(ctx, "delete", userID, id, err, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteByOwner bulk-deletes the posts of userID created at or before
// before. createdAt is checked in code to avoid a composite index.
func (s *FirestoreStore) DeleteByOwner(ctx context.Context, userID string, before time.Time) (int64, []string, error) {
	docs, err := s.col().Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, nil, fmt.Errorf("find posts of %s: %w", userID, err)
	}

	var doomed []*Post
	for _, doc := range docs {
		p, err := decode(doc)
		if err != nil {
			return 0, nil, err
		}
		if !p.CreatedAt.After(before) {
			doomed = append(doomed, p)
		}
	}
	if len(doomed) == 0 {
		return 0, nil, nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(doomed))
	for _, p := range doomed {
		job, err := bw.Delete(s.col().Doc(p.ID))
		if err != nil {
			bw.End()
			return 0, nil, fmt.Errorf("queue post delete: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var deleted int64
	var images []string
	var errs []error
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, fmt.Errorf("delete post: %w", err))
			continue
		}
		deleted++
		images = append(images, doomed[i].AddImages...)
	}
	return deleted, images, errors.Join(errs...)
}

func owned(tx *firestore.Transaction, ref *firestore.DocumentRef, userID string) (*Post, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		return nil, docError(err)
	}
	p, err := decode(doc)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotFound
	}
	return p, nil
}

func decode(doc *firestore.DocumentSnapshot) (*Post, error) {
	var p Post
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode post %s: %w", doc.Ref.ID, err)
	}
	p.ID = doc.Ref.ID
	return &p, nil
}

func docError(err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

var _ Service = (*FirestoreStore)(nil)
