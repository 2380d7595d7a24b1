package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harvestbridge/harvest-bridge/internal/platform/mongodb"
	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

const collection = "posts"

// Indexes are the MongoDB indexes the post queries rely on.
var Indexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	{Keys: bson.D{{Key: "product.status", Value: 1}, {Key: "createdAt", Value: -1}}},
	{Keys: bson.D{{Key: "pinned", Value: 1}, {Key: "createdAt", Value: -1}}},
	{Keys: bson.D{{Key: "farmId", Value: 1}}, Options: options.Index().SetSparse(true)},
}

// MongoStore implements Service on a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a new MongoDB-backed store.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(collection)}
}

// EnsureIndexes creates the indexes in Indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	return mongodb.EnsureIndexes(ctx, s.coll.Database(), map[string][]mongo.IndexModel{collection: Indexes})
}

func (s *MongoStore) Create(ctx context.Context, userID string, in schema.Post) (*Post, error) {
	p := newPost(uuid.NewString(), userID, in, timeutil.Now())
	_, err := s.coll.InsertOne(ctx, p)
	audit(ctx, "create", userID, p.ID, err, nil)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Post, error) {
	var p Post
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *MongoStore) List(ctx context.Context, filter ListFilter) ([]Post, int64, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["userId"] = filter.UserID
	}
	if filter.FarmID != "" {
		q["farmId"] = filter.FarmID
	}
	if filter.Status != "" {
		q["product.status"] = string(filter.Status)
	}
	if filter.Pinned != nil {
		q["pinned"] = *filter.Pinned
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Skip))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find posts: %w", err)
	}
	posts := []Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("decode posts: %w", err)
	}
	total, err := s.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	return posts, total, nil
}

func (s *MongoStore) Replace(ctx context.Context, userID, id string, in schema.Post) (*Post, error) {
	var next Post
	next.apply(in)
	next.UpdatedAt = timeutil.Now()
	set, err := mongodb.SetFields(next, "_id", "userId", "createdAt", "pinned", "favorite", "wishlist", "verified")
	if err != nil {
		return nil, err
	}
	update := mongodb.SetUnset(set, "farmId", "farm_name", "farm_location", "description")

	var p Post
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	err = notFound(err)
	audit(ctx, "update", userID, id, err, nil)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Toggle negates the flag with an aggregation pipeline update, so concurrent
// toggles never read a stale value.
func (s *MongoStore) Toggle(ctx context.Context, userID, id string, flag schema.Flag) (*Post, error) {
	if !flag.Valid() {
		return nil, ErrInvalidFlag
	}
	field := string(flag)
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: field, Value: bson.D{{Key: "$not", Value: bson.A{"$" + field}}}},
			{Key: "updatedAt", Value: timeutil.Now()},
		}}},
	}

	var p Post
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	err = notFound(err)
	if err != nil {
		audit(ctx, "toggle", userID, id, err, nil)
		return nil, err
	}
	audit(ctx, "toggle", userID, id, nil, map[string]any{"flag": field, "value": p.Flag(flag)})
	return &p, nil
}

func (s *MongoStore) Delete(ctx context.Context, userID, id string) (*Post, error) {
	var p Post
	err := notFound(s.coll.FindOneAndDelete(ctx, bson.M{"_id": id, "userId": userID}).Decode(&p))
	audit(ctx, "delete", userID, id, err, nil)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) DeleteByOwner(ctx context.Context, userID string, before time.Time) (int64, []string, error) {
	filter := bson.M{"userId": userID, "createdAt": bson.M{"$lte": before}}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1, "add_images": 1}))
	if err != nil {
		return 0, nil, fmt.Errorf("find posts of %s: %w", userID, err)
	}
	var found []Post
	if err := cur.All(ctx, &found); err != nil {
		return 0, nil, fmt.Errorf("find posts of %s: %w", userID, err)
	}
	if len(found) == 0 {
		return 0, nil, nil
	}

	ids := make([]string, len(found))
	var images []string
	for i, p := range found {
		ids[i] = p.ID
		images = append(images, p.AddImages...)
	}
	res, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, nil, fmt.Errorf("delete posts of %s: %w", userID, err)
	}
	return res.DeletedCount, images, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

var _ Service = (*MongoStore)(nil)
