// Package reconcile removes the farms and posts of deleted profiles. Profile
// deletion leaves a tombstone instead of cascading inline; this step purges
// what the user created up to the deletion and then clears the tombstone.
// Running it twice in a row is a no-op the second time.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harvestbridge/harvest-bridge/internal/media"
	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	profilesvc "github.com/harvestbridge/harvest-bridge/internal/service/profile"
)

// Owned is a collection whose documents carry a userId.
type Owned interface {
	// DeleteByOwner removes the documents of userID created at or before
	// before and returns their image URLs.
	DeleteByOwner(ctx context.Context, userID string, before time.Time) (int64, []string, error)
}

// Tombstones lists and clears profile deletions.
type Tombstones interface {
	Tombstones(ctx context.Context) ([]profilesvc.Tombstone, error)
	ClearTombstone(ctx context.Context, userID string, deletedAt time.Time) error
}

// Releaser deletes stored images owned by a user.
type Releaser interface {
	Release(ctx context.Context, kind media.Kind, owner string, urls ...string)
}

// Report summarizes one pass.
type Report struct {
	Tombstones     int      `json:"tombstones"`
	Orphans        []string `json:"orphans"`
	FarmsDeleted   int64    `json:"farmsDeleted"`
	PostsDeleted   int64    `json:"postsDeleted"`
	ImagesReleased int      `json:"imagesReleased"`
	DryRun         bool     `json:"dryRun"`
}

// Reconciler deletes orphaned farms and posts.
type Reconciler struct {
	profiles Tombstones
	farms    Owned
	posts    Owned
	images   Releaser
	dryRun   bool

	newBackoff func() backoff.BackOff
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDryRun reports orphans without deleting anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

// WithBackoff overrides the retry policy of each store call.
func WithBackoff(fn func() backoff.BackOff) Option {
	return func(r *Reconciler) { r.newBackoff = fn }
}

// WithReleaser deletes the images of purged farms and posts.
func WithReleaser(images Releaser) Option {
	return func(r *Reconciler) { r.images = images }
}

// New creates a Reconciler.
func New(profiles Tombstones, farms, posts Owned, opts ...Option) *Reconciler {
	r := &Reconciler{
		profiles: profiles,
		farms:    farms,
		posts:    posts,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 20 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one reconciliation pass. Owners without a tombstone are left
// alone, whether or not they have a profile.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	report := Report{DryRun: r.dryRun}

	var stones []profilesvc.Tombstone
	if err := r.retry(ctx, func() (err error) {
		stones, err = r.profiles.Tombstones(ctx)
		return err
	}); err != nil {
		return report, fmt.Errorf("list tombstones: %w", err)
	}
	report.Tombstones = len(stones)
	for _, t := range stones {
		report.Orphans = append(report.Orphans, t.UserID)
	}
	if r.dryRun || len(stones) == 0 {
		r.log(ctx, report)
		return report, nil
	}

	var errs []error
	for _, t := range stones {
		res, err := r.purge(ctx, t)
		report.FarmsDeleted += res.farms
		report.PostsDeleted += res.posts
		report.ImagesReleased += res.images
		details := map[string]any{"farms": res.farms, "posts": res.posts, "images": res.images}
		if err == nil {
			err = r.retry(ctx, func() error {
				return r.profiles.ClearTombstone(ctx, t.UserID, t.DeletedAt)
			})
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("purge %s: %w", t.UserID, err))
			details["error"] = "internal_error"
			applog.LogAuditEvent(ctx, applog.AuditReconcile, "system", applog.ResourceProfile, t.UserID, applog.AuditFailure, details)
			continue
		}
		applog.LogAuditEvent(ctx, applog.AuditReconcile, "system", applog.ResourceProfile, t.UserID, applog.AuditSuccess, details)
	}
	r.log(ctx, report)
	return report, errors.Join(errs...)
}

// Loop runs a pass every interval until ctx is done. Failures are logged and
// retried on the next tick.
func (r *Reconciler) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
				applog.LogError(ctx, "reconciliation failed", err)
			}
		}
	}
}

type purged struct {
	farms, posts int64
	images       int
}

// purge deletes what t.UserID created up to the deletion. Images are released
// only for documents that were actually removed.
func (r *Reconciler) purge(ctx context.Context, t profilesvc.Tombstone) (purged, error) {
	var res purged
	var farmImages, postImages []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.retry(gctx, func() (err error) {
			var n int64
			var images []string
			n, images, err = r.farms.DeleteByOwner(gctx, t.UserID, t.DeletedAt)
			res.farms += n
			farmImages = append(farmImages, images...)
			return err
		})
	})
	g.Go(func() error {
		return r.retry(gctx, func() (err error) {
			var n int64
			var images []string
			n, images, err = r.posts.DeleteByOwner(gctx, t.UserID, t.DeletedAt)
			res.posts += n
			postImages = append(postImages, images...)
			return err
		})
	})
	err := g.Wait()

	res.images = len(farmImages) + len(postImages)
	if r.images != nil {
		r.images.Release(ctx, media.KindFarm, t.UserID, farmImages...)
		r.images.Release(ctx, media.KindPost, t.UserID, postImages...)
	}
	return res, err
}

func (r *Reconciler) retry(ctx context.Context, op func() error) error {
	return backoff.Retry(op, backoff.WithContext(r.newBackoff(), ctx))
}

func (r *Reconciler) log(ctx context.Context, report Report) {
	applog.LogInfo(ctx, "reconciliation finished",
		zap.Int("tombstones", report.Tombstones),
		zap.Strings("orphans", report.Orphans),
		zap.Int64("farmsDeleted", report.FarmsDeleted),
		zap.Int64("postsDeleted", report.PostsDeleted),
		zap.Int("imagesReleased", report.ImagesReleased),
		zap.Bool("dryRun", report.DryRun),
	)
}
