// Package mongodb connects to the primary document store.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config selects the server and database.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect dials MongoDB and pings the primary. The returned client must be
// disconnected by the caller.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, nil, errors.New("mongodb: uri and database are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetAppName("harvest-bridge")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates indexes per collection. Existing identical indexes
// are left alone by the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database, indexes map[string][]mongo.IndexModel) error {
	for coll, models := range indexes {
		if len(models) == 0 {
			continue
		}
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// SetFields marshals v and returns its top-level fields minus omit, ready for
// a $set update.
func SetFields(v any, omit ...string) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal update: %w", err)
	}
	for _, k := range omit {
		delete(m, k)
	}
	return m, nil
}

// DuplicateKeyIndex returns the name of the unique index violated by err, or
// "" when err is not a duplicate key error.
func DuplicateKeyIndex(err error) string {
	if !IsDuplicateKey(err) {
		return ""
	}
	var msgs []string
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			msgs = append(msgs, e.Message)
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		msgs = append(msgs, ce.Message)
	}
	for _, msg := range msgs {
		if _, rest, ok := strings.Cut(msg, "index: "); ok {
			name, _, _ := strings.Cut(rest, " ")
			return name
		}
	}
	return "unknown"
}

// SetUnset builds a {$set, $unset} update from set. Keys in optional that are
// missing from set (dropped by omitempty) are unset, so a full replace clears
// them.
func SetUnset(set bson.M, optional ...string) bson.M {
	update := bson.M{"$set": set}
	unset := bson.M{}
	for _, key := range optional {
		if _, ok := set[key]; !ok {
			unset[key] = ""
		}
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}
