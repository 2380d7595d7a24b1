// Package profile stores marketplace user profiles and the ratings other
// users leave on them.
package profile

import (
	"context"
	"errors"
	"math"
	"time"

	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// Service errors
var (
	ErrNotFound      = errors.New("profile not found")
	ErrAlreadyExists = errors.New("profile already exists")
	ErrEmailTaken    = errors.New("email is already in use")
	ErrUsernameTaken = errors.New("username is already in use")
	ErrSelfRating    = errors.New("users cannot rate themselves")
)

// SocialMediaLinks of a profile.
type SocialMediaLinks struct {
	Facebook  string `bson:"facebook,omitempty"  firestore:"facebook,omitempty"`
	Twitter   string `bson:"twitter,omitempty"   firestore:"twitter,omitempty"`
	Instagram string `bson:"instagram,omitempty" firestore:"instagram,omitempty"`
	LinkedIn  string `bson:"linkedin,omitempty"  firestore:"linkedin,omitempty"`
	Website   string `bson:"website,omitempty"   firestore:"website,omitempty"`
}

// Rating is one review left by RaterID. Ratings are append-only.
type Rating struct {
	FarmerRating float64   `bson:"farmer_rating"    firestore:"farmer_rating"`
	Review       string    `bson:"review,omitempty" firestore:"review,omitempty"`
	RaterID      string    `bson:"raterId"          firestore:"raterId"`
	CreatedAt    time.Time `bson:"createdAt"        firestore:"createdAt"`
}

// Profile represents stored profile data. In Firestore the document id is
// UserID; ID is kept as a field.
type Profile struct {
	ID               string           `bson:"_id"                      firestore:"id"`
	UserID           string           `bson:"userId"                   firestore:"userId"`
	Email            string           `bson:"email"                    firestore:"email"`
	Username         string           `bson:"username"                 firestore:"username"`
	FullName         string           `bson:"fullName"                 firestore:"fullName"`
	Bio              string           `bson:"bio,omitempty"            firestore:"bio,omitempty"`
	ProfilePicture   string           `bson:"profilePicture,omitempty" firestore:"profilePicture,omitempty"`
	Role             string           `bson:"role"                     firestore:"role"`
	PhoneNumber      string           `bson:"phoneNumber,omitempty"    firestore:"phoneNumber,omitempty"`
	Country          string           `bson:"country,omitempty"        firestore:"country,omitempty"`
	SocialMediaLinks SocialMediaLinks `bson:"socialMediaLinks"         firestore:"socialMediaLinks"`
	Verified         bool             `bson:"verified"                 firestore:"verified"`
	Ratings          []Rating         `bson:"ratings"                  firestore:"ratings"`
	CreatedAt        time.Time        `bson:"createdAt"                firestore:"createdAt"`
	UpdatedAt        time.Time        `bson:"updatedAt"                firestore:"updatedAt"`
}

// RatingCount is the number of ratings received.
func (p *Profile) RatingCount() int {
	return len(p.Ratings)
}

// AverageRating is the mean rating rounded to two decimals, 0 without ratings.
func (p *Profile) AverageRating() float64 {
	if len(p.Ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range p.Ratings {
		sum += r.FarmerRating
	}
	return math.Round(sum/float64(len(p.Ratings))*100) / 100
}

// ListFilter selects profiles for the keyset listing. UserID, Username and
// Email are exact matches; After is the last userId already served.
type ListFilter struct {
	UserID   string
	Username string
	Email    string
	After    string
	Limit    int
}

// Service defines profile operations. Profiles are keyed by the owning
// user's id.
//
// Implementations enforce unique userId, email and username.
type Service interface {
	Create(ctx context.Context, userID string, in schema.UserProfile) (*Profile, error)
	Get(ctx context.Context, userID string) (*Profile, error)
	// List returns up to filter.Limit profiles ordered by userId.
	List(ctx context.Context, filter ListFilter) ([]Profile, error)
	// Page returns a skip/limit window ordered newest first, with the total.
	Page(ctx context.Context, skip, limit int) ([]Profile, int64, error)
	// Update replaces the editable fields of the profile.
	Update(ctx context.Context, userID string, in schema.UserProfile) (*Profile, error)
	SetPicture(ctx context.Context, userID, url string) (*Profile, error)
	// AddRating appends a rating by raterID to userID's profile.
	AddRating(ctx context.Context, userID, raterID string, in schema.Rating) (*Profile, error)
	// Delete removes the profile and records a Tombstone for it.
	Delete(ctx context.Context, userID string) (*Profile, error)
	// Tombstones lists deletions whose content has not been purged yet.
	Tombstones(ctx context.Context) ([]Tombstone, error)
	// ClearTombstone drops userID's tombstone if it still carries deletedAt.
	// A later deletion of the same user keeps its tombstone.
	ClearTombstone(ctx context.Context, userID string, deletedAt time.Time) error
}

// Tombstone marks a deleted profile. Farms and posts the user created at or
// before DeletedAt are purged by the reconciler.
type Tombstone struct {
	UserID    string    `bson:"_id"       firestore:"userId"`
	DeletedAt time.Time `bson:"deletedAt" firestore:"deletedAt"`
}

func (p *Profile) apply(in schema.UserProfile) {
	p.Email = in.Email
	p.Username = in.Username
	p.FullName = in.FullName
	p.Bio = in.Bio
	p.ProfilePicture = in.ProfilePicture
	p.Role = string(in.Role)
	p.PhoneNumber = in.PhoneNumber
	p.Country = in.Country
	p.SocialMediaLinks = SocialMediaLinks(in.SocialMediaLinks)
}

func newProfile(id, userID string, in schema.UserProfile, now time.Time) Profile {
	p := Profile{ID: id, UserID: userID, Ratings: []Rating{}, CreatedAt: now, UpdatedAt: now}
	p.apply(in)
	return p
}

func newRating(raterID string, in schema.Rating, now time.Time) Rating {
	r := Rating{Review: in.Review, RaterID: raterID, CreatedAt: now}
	if in.FarmerRating != nil {
		r.FarmerRating = *in.FarmerRating
	}
	return r
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSelfRating):
		return "self_rating"
	default:
		return "internal_error"
	}
}

func audit(ctx context.Context, action applog.AuditAction, actorID, profileID string, err error) {
	if err != nil {
		applog.LogAuditEvent(ctx, action, actorID, applog.ResourceProfile, profileID, applog.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return
	}
	applog.LogAuditEvent(ctx, action, actorID, applog.ResourceProfile, profileID, applog.AuditSuccess, nil)
}
