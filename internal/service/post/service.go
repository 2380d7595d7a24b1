// Package post stores marketplace ads. Mutations are scoped to the owning
// user; flags are flipped server-side in a single atomic update.
package post

import (
	"context"
	"errors"
	"time"

	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// Service errors
var (
	ErrNotFound = errors.New("post not found")
	// ErrInvalidReference reports a farmId that does not name one of the
	// caller's farms.
	ErrInvalidReference = errors.New("farm reference is invalid")
	ErrInvalidFlag      = errors.New("unknown flag")
)

// Product is the item offered by a post.
type Product struct {
	Item     string  `bson:"item"     firestore:"item"`
	Quantity float64 `bson:"quantity" firestore:"quantity"`
	Price    float64 `bson:"price"    firestore:"price"`
	Unit     string  `bson:"unit"     firestore:"unit"`
	Status   string  `bson:"status"   firestore:"status"`
}

// HarvestDetails describe the produce.
type HarvestDetails struct {
	HarvestDate   string `bson:"harvest_date,omitempty"   firestore:"harvest_date,omitempty"`
	QualityGrade  string `bson:"quality_grade,omitempty"  firestore:"quality_grade,omitempty"`
	Certification string `bson:"certification,omitempty"  firestore:"certification,omitempty"`
	StorageMethod string `bson:"storage_method,omitempty" firestore:"storage_method,omitempty"`
}

// Pricing terms.
type Pricing struct {
	Negotiable bool    `bson:"negotiable"         firestore:"negotiable"`
	Discount   float64 `bson:"discount"           firestore:"discount"`
	Currency   string  `bson:"currency,omitempty" firestore:"currency,omitempty"`
}

// Logistics of delivery and pickup.
type Logistics struct {
	DeliveryAvailable bool    `bson:"delivery_available"        firestore:"delivery_available"`
	DeliveryArea      string  `bson:"delivery_area,omitempty"   firestore:"delivery_area,omitempty"`
	PickupLocation    string  `bson:"pickup_location,omitempty" firestore:"pickup_location,omitempty"`
	DeliveryFee       float64 `bson:"delivery_fee"              firestore:"delivery_fee"`
}

// Post is a stored ad.
type Post struct {
	ID             string         `bson:"_id"                     firestore:"-"`
	UserID         string         `bson:"userId"                  firestore:"userId"`
	FarmID         string         `bson:"farmId,omitempty"        firestore:"farmId,omitempty"`
	FarmName       string         `bson:"farm_name,omitempty"     firestore:"farm_name,omitempty"`
	FarmLocation   string         `bson:"farm_location,omitempty" firestore:"farm_location,omitempty"`
	Product        Product        `bson:"product"                 firestore:"product"`
	HarvestDetails HarvestDetails `bson:"harvest_details"         firestore:"harvest_details"`
	Pricing        Pricing        `bson:"pricing"                 firestore:"pricing"`
	Logistics      Logistics      `bson:"logistics"               firestore:"logistics"`
	Description    string         `bson:"description,omitempty"   firestore:"description,omitempty"`
	AddImages      []string       `bson:"add_images"              firestore:"add_images"`
	Pinned         bool           `bson:"pinned"                  firestore:"pinned"`
	Favorite       bool           `bson:"favorite"                firestore:"favorite"`
	Wishlist       bool           `bson:"wishlist"                firestore:"wishlist"`
	Verified       bool           `bson:"verified"                firestore:"verified"`
	CreatedAt      time.Time      `bson:"createdAt"               firestore:"createdAt"`
	UpdatedAt      time.Time      `bson:"updatedAt"               firestore:"updatedAt"`
}

// Flag reports the value of f.
func (p *Post) Flag(f schema.Flag) bool {
	switch f {
	case schema.FlagPinned:
		return p.Pinned
	case schema.FlagFavorite:
		return p.Favorite
	case schema.FlagWishlist:
		return p.Wishlist
	}
	return false
}

func (p *Post) setFlag(f schema.Flag, v bool) {
	switch f {
	case schema.FlagPinned:
		p.Pinned = v
	case schema.FlagFavorite:
		p.Favorite = v
	case schema.FlagWishlist:
		p.Wishlist = v
	}
}

// ListFilter narrows List. Zero values mean "no filter"; Limit 0 means all.
type ListFilter struct {
	UserID string
	FarmID string
	Status schema.ProductStatus
	Pinned *bool
	Skip   int
	Limit  int
}

// Service defines post operations. Lists are ordered newest first.
type Service interface {
	Create(ctx context.Context, userID string, in schema.Post) (*Post, error)
	Get(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context, filter ListFilter) ([]Post, int64, error)
	// Replace overwrites the editable fields of the caller's post. Flags and
	// verification survive a replace.
	Replace(ctx context.Context, userID, id string, in schema.Post) (*Post, error)
	// Toggle flips one flag on the caller's post.
	Toggle(ctx context.Context, userID, id string, flag schema.Flag) (*Post, error)
	Delete(ctx context.Context, userID, id string) (*Post, error)
	// DeleteByOwner removes the posts of userID created at or before before
	// and returns their image URLs.
	DeleteByOwner(ctx context.Context, userID string, before time.Time) (int64, []string, error)
}

func (p *Post) apply(in schema.Post) {
	p.FarmID = in.FarmID
	p.FarmName = in.FarmName
	p.FarmLocation = in.FarmLocation
	p.Product = Product{
		Item:   in.Product.Item,
		Unit:   in.Product.Unit,
		Status: string(in.Product.Status),
	}
	if p.Product.Status == "" {
		p.Product.Status = string(schema.StatusAvailable)
	}
	if in.Product.Quantity != nil {
		p.Product.Quantity = *in.Product.Quantity
	}
	if in.Product.Price != nil {
		p.Product.Price = *in.Product.Price
	}
	p.HarvestDetails = HarvestDetails(in.HarvestDetails)
	p.Pricing = Pricing(in.Pricing)
	p.Logistics = Logistics(in.Logistics)
	p.Description = in.Description
	p.AddImages = append([]string{}, in.AddImages...)
}

func newPost(id, userID string, in schema.Post, now time.Time) Post {
	p := Post{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}
	p.apply(in)
	return p
}

// matches reports whether p passes f, ignoring paging.
func (f ListFilter) matches(p *Post) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.FarmID != "" && p.FarmID != f.FarmID {
		return false
	}
	if f.Status != "" && p.Product.Status != string(f.Status) {
		return false
	}
	if f.Pinned != nil && p.Pinned != *f.Pinned {
		return false
	}
	return true
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidFlag):
		return "invalid_flag"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}

func audit(ctx context.Context, action applog.AuditAction, userID, postID string, err error, details map[string]any) {
	if err != nil {
		applog.LogAuditEvent(ctx, action, userID, applog.ResourcePost, postID, applog.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return
	}
	applog.LogAuditEvent(ctx, action, userID, applog.ResourcePost, postID, applog.AuditSuccess, details)
}
