package profile

import (
	"context"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harvestbridge/harvest-bridge/internal/platform/cache"
	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

var cacheEnc = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Cached serves Get from a read-through cache. Entries live under a
// per-user version that every write rotates, so a read that raced with a
// write fills a key nobody reads again. Cache failures are logged and fall
// through to the store.
type Cached struct {
	Service
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps next with c. Entries expire after ttl.
func NewCached(next Service, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{Service: next, cache: c, ttl: ttl}
}

func versionKey(userID string) string {
	return "profile:version:" + userID
}

func cacheKey(userID, version string) string {
	return "profile:" + userID + ":" + version
}

// Get implements Service.
func (c *Cached) Get(ctx context.Context, userID string) (*Profile, error) {
	version, ok := c.version(ctx, userID)
	if !ok {
		return c.Service.Get(ctx, userID)
	}
	key := cacheKey(userID, version)
	raw, err := c.cache.Get(ctx, key)
	if err == nil {
		var p Profile
		if err := cbor.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		applog.LogWarn(ctx, "discarding undecodable profile cache entry")
	} else if !errors.Is(err, cache.ErrMiss) {
		applog.LogWarn(ctx, "profile cache read failed", zap.Error(err))
	}

	p, err := c.Service.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if raw, err := cacheEnc.Marshal(p); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			applog.LogWarn(ctx, "profile cache write failed", zap.Error(err))
		}
	}
	return p, nil
}

func (c *Cached) Update(ctx context.Context, userID string, in schema.UserProfile) (*Profile, error) {
	defer c.invalidate(ctx, userID)
	return c.Service.Update(ctx, userID, in)
}

func (c *Cached) SetPicture(ctx context.Context, userID, url string) (*Profile, error) {
	defer c.invalidate(ctx, userID)
	return c.Service.SetPicture(ctx, userID, url)
}

func (c *Cached) AddRating(ctx context.Context, userID, raterID string, in schema.Rating) (*Profile, error) {
	defer c.invalidate(ctx, userID)
	return c.Service.AddRating(ctx, userID, raterID, in)
}

func (c *Cached) Delete(ctx context.Context, userID string) (*Profile, error) {
	defer c.invalidate(ctx, userID)
	return c.Service.Delete(ctx, userID)
}

// version returns the current entry version of userID. A user never written
// through this cache reads version "0". ok is false when the cache is down.
func (c *Cached) version(ctx context.Context, userID string) (string, bool) {
	raw, err := c.cache.Get(ctx, versionKey(userID))
	switch {
	case err == nil:
		return string(raw), true
	case errors.Is(err, cache.ErrMiss):
		return "0", true
	default:
		applog.LogWarn(ctx, "profile cache read failed", zap.Error(err))
		return "", false
	}
}

// invalidate rotates the version after the store write has finished. The
// version key has no TTL; stale entries age out on their own.
func (c *Cached) invalidate(ctx context.Context, userID string) {
	if err := c.cache.Set(ctx, versionKey(userID), []byte(uuid.NewString()), 0); err != nil {
		applog.LogWarn(ctx, "profile cache invalidation failed", zap.Error(err))
	}
}

var _ Service = (*Cached)(nil)
