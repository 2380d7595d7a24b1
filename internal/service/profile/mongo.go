package profile

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

const (
	collection          = "profiles"
	tombstoneCollection = "profileTombstones"
	userIDIndex   = "userId_unique"
	emailIndex    = "email_unique"
	usernameIndex = "username_unique"
)

// Indexes enforce the uniqueness invariants of profiles.
var Indexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true).SetName(userIDIndex)},
	{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
	{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
	{Keys: bson.D{{Key: "createdAt", Value: -1}}},
}

// MongoStore implements Service on a MongoDB collection with unique indexes.
type MongoStore struct {
	coll       *mongo.Collection
	tombstones *mongo.Collection
}

// NewMongoStore creates a new MongoDB-backed store. EnsureIndexes must run
// before uniqueness is enforced.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(collection), tombstones: db.Collection(tombstoneCollection)}
}

// EnsureIndexes creates the indexes in Indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	return mongodb.EnsureIndexes(ctx, s.coll.Database(), map[string][]mongo.IndexModel{collection: Indexes})
}

// Create inserts the caller's profile.
func (s *MongoStore) Create(ctx context.Context, userID string, in schema.UserProfile) (*Profile, error) {
	p := newProfile(uuid.NewString(), userID, in, timeutil.Now())
	_, err := s.coll.InsertOne(ctx, p)
	err = conflict(err)
	audit(ctx, "create", userID, userID, err)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get retrieves a profile by user ID.
func (s *MongoStore) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// List returns profiles ordered by userId after filter.After.
func (s *MongoStore) List(ctx context.Context, filter ListFilter) ([]Profile, error) {
	q := bson.M{}
	if filter.Username != "" {
		q["username"] = filter.Username
	}
	if filter.Email != "" {
		q["email"] = filter.Email
	}
	switch {
	case filter.UserID != "" && filter.After != "":
		if filter.UserID <= filter.After {
			return []Profile{}, nil
		}
		q["userId"] = filter.UserID
	case filter.UserID != "":
		q["userId"] = filter.UserID
	case filter.After != "":
		q["userId"] = bson.M{"$gt": filter.After}
	}

	opts := options.Find().SetSort(bson.D{{Key: "userId", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return s.find(ctx, q, opts)
}

// Page returns a window of profiles ordered newest first.
func (s *MongoStore) Page(ctx context.Context, skip, limit int) ([]Profile, int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "userId", Value: 1}}).
		SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	profiles, err := s.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	return profiles, total, nil
}

// Update replaces the editable fields of the profile.
func (s *MongoStore) Update(ctx context.Context, userID string, in schema.UserProfile) (*Profile, error) {
	var next Profile
	next.apply(in)
	next.UpdatedAt = timeutil.Now()
	set, err := mongodb.SetFields(next, "_id", "userId", "verified", "ratings", "createdAt")
	if err != nil {
		return nil, err
	}
	p, err := s.update(ctx, userID,
		mongodb.SetUnset(set, "bio", "profilePicture", "phoneNumber", "country"))
	audit(ctx, "update", userID, userID, err)
	return p, err
}

// SetPicture replaces the profile picture URL.
func (s *MongoStore) SetPicture(ctx context.Context, userID, url string) (*Profile, error) {
	p, err := s.update(ctx, userID, bson.M{"$set": bson.M{
		"profilePicture": url,
		"updatedAt":      timeutil.Now(),
	}})
	audit(ctx, "update", userID, userID, err)
	return p, err
}

// AddRating pushes a rating onto the target's profile.
func (s *MongoStore) AddRating(ctx context.Context, userID, raterID string, in schema.Rating) (*Profile, error) {
	if userID == raterID {
		audit(ctx, "rate", raterID, userID, ErrSelfRating)
		return nil, ErrSelfRating
	}
	now := timeutil.Now()
	p, err := s.update(ctx, userID, bson.M{
		"$push": bson.M{"ratings": newRating(raterID, in, now)},
		"$set":  bson.M{"updatedAt": now},
	})
	audit(ctx, "rate", raterID, userID, err)
	return p, err
}

// Delete removes the profile, then upserts its tombstone.
func (s *MongoStore) Delete(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := notFound(s.coll.FindOneAndDelete(ctx, bson.M{"userId": userID}).Decode(&p))
	if err == nil {
		_, err = s.tombstones.UpdateOne(ctx,
			bson.M{"_id": userID},
			bson.M{"$set": bson.M{"deletedAt": timeutil.Now()}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			err = fmt.Errorf("record tombstone: %w", err)
		}
	}
	audit(ctx, "delete", userID, userID, err)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Tombstones lists every pending tombstone.
func (s *MongoStore) Tombstones(ctx context.Context) ([]Tombstone, error) {
	cur, err := s.tombstones.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	out := []Tombstone{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	return out, nil
}

// ClearTombstone removes the tombstone only while deletedAt matches.
func (s *MongoStore) ClearTombstone(ctx context.Context, userID string, deletedAt time.Time) error {
	_, err := s.tombstones.DeleteOne(ctx, bson.M{"_id": userID, "deletedAt": deletedAt})
	if err != nil {
		return fmt.Errorf("clear tombstone: %w", err)
	}
	return nil
}

func (s *MongoStore) update(ctx context.Context, userID string, update bson.M) (*Profile, error) {
	var p Profile
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"userId": userID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, conflict(notFound(err))
	}
	return &p, nil
}

func (s *MongoStore) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]Profile, error) {
	cur, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find profiles: %w", err)
	}
	profiles := []Profile{}
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return profiles, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// conflict maps unique index violations to service errors.
func conflict(err error) error {
	switch mongodb.DuplicateKeyIndex(err) {
	case "":
		return err
	case emailIndex:
		return ErrEmailTaken
	case usernameIndex:
		return ErrUsernameTaken
	default:
		return ErrAlreadyExists
	}
}

var _ Service = (*MongoStore)(nil)
