package farm

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

const collection = "farms"

// Indexes are the MongoDB indexes the farm queries rely on.
var Indexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	{Keys: bson.D{{Key: "createdAt", Value: -1}}},
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

// Create inserts a new farm with a generated id.
func (s *MongoStore) Create(ctx context.Context, userID string, in schema.FarmProfile) (*Farm, error) {
	f := newFarm(uuid.NewString(), userID, in, timeutil.Now())
	_, err := s.coll.InsertOne(ctx, f)
	audit(ctx, "create", userID, f.ID, err)
	if err != nil {
		return nil, fmt.Errorf("insert farm: %w", err)
	}
	return &f, nil
}

// Get retrieves a farm by id.
func (s *MongoStore) Get(ctx context.Context, id string) (*Farm, error) {
	var f Farm
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// List returns one page of farms and the total matching count.
func (s *MongoStore) List(ctx context.Context, filter ListFilter) ([]Farm, int64, error) {
	q := bson.M{}
	if filter.UserID != "" {
		q["userId"] = filter.UserID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Skip))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find farms: %w", err)
	}
	farms := []Farm{}
	if err := cur.All(ctx, &farms); err != nil {
		return nil, 0, fmt.Errorf("decode farms: %w", err)
	}
	total, err := s.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count farms: %w", err)
	}
	return farms, total, nil
}

// Replace overwrites the caller's farm in a single filtered update.
func (s *MongoStore) Replace(ctx context.Context, userID, id string, in schema.FarmProfile) (*Farm, error) {
	var next Farm
	next.apply(in)
	next.UpdatedAt = timeutil.Now()
	set, err := mongodb.SetFields(next, "_id", "userId", "createdAt")
	if err != nil {
		return nil, err
	}

	var f Farm
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		mongodb.SetUnset(set, "gpsAddress", "email", "cooperativeName", "cooperativeExecutive"),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&f)
	err = notFound(err)
	audit(ctx, "update", userID, id, err)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Delete removes the caller's farm.
func (s *MongoStore) Delete(ctx context.Context, userID, id string) (*Farm, error) {
	var f Farm
	err := notFound(s.coll.FindOneAndDelete(ctx, bson.M{"_id": id, "userId": userID}).Decode(&f))
	audit(ctx, "delete", userID, id, err)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteByOwner removes the farms of userID created at or before before and
// returns their image URLs.
func (s *MongoStore) DeleteByOwner(ctx context.Context, userID string, before time.Time) (int64, []string, error) {
	filter := bson.M{"userId": userID, "createdAt": bson.M{"$lte": before}}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1, "farmImages": 1}))
	if err != nil {
		return 0, nil, fmt.Errorf("find farms of %s: %w", userID, err)
	}
	var found []Farm
	if err := cur.All(ctx, &found); err != nil {
		return 0, nil, fmt.Errorf("find farms of %s: %w", userID, err)
	}
	if len(found) == 0 {
		return 0, nil, nil
	}

	ids := make([]string, len(found))
	var images []string
	for i, f := range found {
		ids[i] = f.ID
		images = append(images, f.FarmImages...)
	}
	res, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, nil, fmt.Errorf("delete farms of %s: %w", userID, err)
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
