// Package farm stores farm profiles. Every mutation is scoped to the owning
// user: a farm owned by someone else is reported as ErrNotFound.
package farm

import (
	"context"
	"errors"
	"time"

	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// Service errors
var (
	ErrNotFound = errors.New("farm not found")
)

// Farm is a stored farm profile.
type Farm struct {
	ID                   string    `bson:"_id"                            firestore:"-"`
	UserID               string    `bson:"userId"                         firestore:"userId"`
	FarmName             string    `bson:"farmName"                       firestore:"farmName"`
	FarmLocation         string    `bson:"farmLocation"                   firestore:"farmLocation"`
	FarmSize             float64   `bson:"farmSize"                       firestore:"farmSize"`
	GPSAddress           string    `bson:"gpsAddress,omitempty"           firestore:"gpsAddress,omitempty"`
	ProductionScale      string    `bson:"productionScale"                firestore:"productionScale"`
	OwnershipStatus      string    `bson:"ownershipStatus"                firestore:"ownershipStatus"`
	FullName             string    `bson:"fullName"                       firestore:"fullName"`
	ContactPhone         string    `bson:"contactPhone"                   firestore:"contactPhone"`
	Email                string    `bson:"email,omitempty"                firestore:"email,omitempty"`
	Gender               string    `bson:"gender"                         firestore:"gender"`
	FarmType             string    `bson:"farmType"                       firestore:"farmType"`
	CropsGrown           []string  `bson:"cropsGrown"                     firestore:"cropsGrown"`
	LivestockProduced    []string  `bson:"livestockProduced"              firestore:"livestockProduced"`
	BelongsToCooperative bool      `bson:"belongsToCooperative"           firestore:"belongsToCooperative"`
	CooperativeName      string    `bson:"cooperativeName,omitempty"      firestore:"cooperativeName,omitempty"`
	CooperativeExecutive string    `bson:"cooperativeExecutive,omitempty" firestore:"cooperativeExecutive,omitempty"`
	FarmImages           []string  `bson:"farmImages"                     firestore:"farmImages"`
	CreatedAt            time.Time `bson:"createdAt"                      firestore:"createdAt"`
	UpdatedAt            time.Time `bson:"updatedAt"                      firestore:"updatedAt"`
}

// ListFilter narrows List. Zero values mean "no filter"; Limit 0 means all.
type ListFilter struct {
	UserID string
	Skip   int
	Limit  int
}

// Service defines farm operations. Lists are ordered newest first.
type Service interface {
	Create(ctx context.Context, userID string, in schema.FarmProfile) (*Farm, error)
	Get(ctx context.Context, id string) (*Farm, error)
	List(ctx context.Context, filter ListFilter) ([]Farm, int64, error)
	// Replace overwrites the editable fields of the caller's farm.
	Replace(ctx context.Context, userID, id string, in schema.FarmProfile) (*Farm, error)
	// Delete removes the caller's farm and returns it.
	Delete(ctx context.Context, userID, id string) (*Farm, error)
	// DeleteByOwner removes every farm of userID created at or before
	// before, returning the count and the removed farms' image URLs.
	DeleteByOwner(ctx context.Context, userID string, before time.Time) (int64, []string, error)
}

// apply copies the editable fields of in onto f.
func (f *Farm) apply(in schema.FarmProfile) {
	f.FarmName = in.FarmName
	f.FarmLocation = in.FarmLocation
	if in.FarmSize != nil {
		f.FarmSize = *in.FarmSize
	}
	f.GPSAddress = in.GPSAddress
	f.ProductionScale = string(in.ProductionScale)
	f.OwnershipStatus = string(in.OwnershipStatus)
	f.FullName = in.FullName
	f.ContactPhone = in.ContactPhone
	f.Email = in.Email
	f.Gender = string(in.Gender)
	f.FarmType = string(in.FarmType)
	f.CropsGrown = nonNil(in.CropsGrown)
	f.LivestockProduced = nonNil(in.LivestockProduced)
	f.BelongsToCooperative = in.BelongsToCooperative
	f.CooperativeName = in.CooperativeName
	f.CooperativeExecutive = in.CooperativeExecutive
	f.FarmImages = nonNil(in.FarmImages)
}

func newFarm(id, userID string, in schema.FarmProfile, now time.Time) Farm {
	f := Farm{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}
	f.apply(in)
	return f
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}

func audit(ctx context.Context, action applog.AuditAction, userID, farmID string, err error) {
	if err != nil {
		applog.LogAuditEvent(ctx, action, userID, applog.ResourceFarm, farmID, applog.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return
	}
	applog.LogAuditEvent(ctx, action, userID, applog.ResourceFarm, farmID, applog.AuditSuccess, nil)
}
