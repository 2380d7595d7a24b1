// Package app assembles the configured backends into the running server and
// the maintenance commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/harvestbridge/harvest-bridge/internal/http/health"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/routes"
	"github.com/harvestbridge/harvest-bridge/internal/media"
	"github.com/harvestbridge/harvest-bridge/internal/platform/auth"
	"github.com/harvestbridge/harvest-bridge/internal/platform/cache"
	"github.com/harvestbridge/harvest-bridge/internal/platform/config"
	"github.com/harvestbridge/harvest-bridge/internal/platform/firebase"
	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/platform/mongodb"
	"github.com/harvestbridge/harvest-bridge/internal/service/farm"
	"github.com/harvestbridge/harvest-bridge/internal/service/post"
	"github.com/harvestbridge/harvest-bridge/internal/service/profile"
	"github.com/harvestbridge/harvest-bridge/internal/service/reconcile"
)

// App holds the wired dependencies.
type App struct {
	Config    *config.Config
	Services  routes.Services
	Verifier  auth.Verifier
	Offloader *media.Offloader
	// MediaHandler serves in-memory media; nil for external backends.
	MediaHandler http.Handler
	// Checks probe the external dependencies for /health.
	Checks map[string]health.Check

	// Uncached stores used by the reconciler.
	farms    reconcile.Owned
	posts    reconcile.Owned
	profiles reconcile.Tombstones

	closers []func(context.Context) error
}

// New connects every backend cfg selects. On error, whatever was already
// opened is closed.
func New(ctx context.Context, cfg *config.Config) (a *App, err error) {
	a = &App{Config: cfg, Checks: map[string]health.Check{}}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
			a = nil
		}
	}()

	var fb *firebase.Clients
	if cfg.NeedsFirebase() {
		fb, err = firebase.InitializeClients(ctx, firebase.Config{
			ProjectID:                    cfg.FirebaseConfig.ProjectID,
			GoogleApplicationCredentials: cfg.FirebaseConfig.GoogleApplicationCredentials,
			StorageBucket:                cfg.MediaBucket,
			WithFirestore:                cfg.StoreBackend == config.StoreFirestore,
			WithStorage:                  cfg.MediaBackend == config.MediaGCS,
		})
		if err != nil {
			return a, fmt.Errorf("firebase: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return fb.Close() })
	}

	if err = a.openStores(ctx, fb); err != nil {
		return a, err
	}
	if err = a.openCache(ctx); err != nil {
		return a, err
	}
	if err = a.openMedia(fb); err != nil {
		return a, err
	}

	switch cfg.AuthMode {
	case config.AuthFirebase:
		a.Verifier = auth.NewFirebaseVerifier(fb.Auth)
	case config.AuthJWT:
		a.Verifier = auth.NewJWTVerifier([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context, fb *firebase.Clients) error {
	cfg := a.Config
	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  cfg.MongoTimeout,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Disconnect)
		a.Checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }

		farms, posts, profiles := farm.NewMongoStore(db), post.NewMongoStore(db), profile.NewMongoStore(db)
		for _, s := range []interface{ EnsureIndexes(context.Context) error }{farms, posts, profiles} {
			if err := s.EnsureIndexes(ctx); err != nil {
				return err
			}
		}
		a.useStores(farms, posts, profiles)
	case config.StoreFirestore:
		a.useStores(
			farm.NewFirestoreStore(fb.Firestore),
			post.NewFirestoreStore(fb.Firestore),
			profile.NewFirestoreStore(fb.Firestore),
		)
	case config.StoreMemory:
		applog.LogWarn(ctx, "using in-memory stores; data is lost on restart")
		a.useStores(farm.NewMemoryStore(), post.NewMemoryStore(), profile.NewMemoryStore())
	}
	return nil
}

func (a *App) useStores(farms farm.Service, posts post.Service, profiles profile.Service) {
	a.Services = routes.Services{Farms: farms, Posts: posts, Profiles: profiles}
	a.farms, a.posts, a.profiles = farms, posts, profiles
}

func (a *App) openCache(ctx context.Context) error {
	cfg := a.Config
	if cfg.ProfileCacheTTL <= 0 {
		return nil
	}
	var c cache.Cache
	if cfg.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisURL, "harvest-bridge:")
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return r.Close() })
		a.Checks["redis"] = func(ctx context.Context) error {
			_, err := r.Get(ctx, "health")
			if errors.Is(err, cache.ErrMiss) {
				return nil
			}
			return err
		}
		c = r
	} else {
		c = cache.NewMemory()
	}
	a.Services.Profiles = profile.NewCached(a.Services.Profiles, c, cfg.ProfileCacheTTL)
	return nil
}

func (a *App) openMedia(fb *firebase.Clients) error {
	cfg := a.Config
	var store media.Store
	switch cfg.MediaBackend {
	case config.MediaGCS:
		bucket, err := fb.Storage.Bucket(cfg.MediaBucket)
		if err != nil {
			return fmt.Errorf("media bucket: %w", err)
		}
		store = media.NewGCS(bucket, cfg.MediaBucket)
	case config.MediaCloudinary:
		c, err := media.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			return err
		}
		store = c
	default:
		m := media.NewMemory(cfg.MediaBaseURL)
		a.MediaHandler = m
		store = m
	}
	a.Offloader = media.NewOffloader(store)
	return nil
}

// Reconciler builds the orphan cleanup over the uncached stores. Images of
// purged documents go through the offloader.
func (a *App) Reconciler(opts ...reconcile.Option) *reconcile.Reconciler {
	opts = append([]reconcile.Option{reconcile.WithReleaser(a.Offloader)}, opts...)
	return reconcile.New(a.profiles, a.farms, a.posts, opts...)
}

// Close releases every backend in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			applog.LogWarn(ctx, "failed to close backend", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
