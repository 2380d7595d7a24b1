package client

import (
	"time"

	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// Farm as returned by the API. The payload fields are promoted from
// schema.FarmProfile so a fetched farm can be edited and sent back.
type Farm struct {
	ID     string `json:"_id"`
	UserID string `json:"userId"`
	schema.FarmProfile
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key implements store.Keyed.
func (f Farm) Key() string { return f.ID }

// Post as returned by the API.
type Post struct {
	ID     string `json:"_id"`
	UserID string `json:"userId"`
	schema.Post
	Pinned    bool      `json:"pinned"`
	Favorite  bool      `json:"favorite"`
	Wishlist  bool      `json:"wishlist"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key implements store.Keyed.
func (p Post) Key() string { return p.ID }

// Flag reports the value of one flag.
func (p Post) Flag(f schema.Flag) bool {
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

// Rating left on a profile.
type Rating struct {
	FarmerRating float64   `json:"farmer_rating"`
	Review       string    `json:"review,omitempty"`
	RaterID      string    `json:"raterId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile as returned by the API.
type Profile struct {
	ID     string `json:"_id"`
	UserID string `json:"userId"`
	schema.UserProfile
	Verified      bool      `json:"verified"`
	Ratings       []Rating  `json:"ratings"`
	AverageRating float64   `json:"averageRating"`
	RatingCount   int       `json:"ratingCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Key implements store.Keyed. Profiles are addressed by user id.
func (p Profile) Key() string { return p.UserID }

// FarmQuery filters ListFarms. Zero values are omitted.
type FarmQuery struct {
	UserID string
	Mine   bool
	Skip   int
	Limit  int
}

// FarmPage is one page of farms.
type FarmPage struct {
	FarmData []Farm `json:"farmData"`
	Total    int64  `json:"total"`
}

// PostQuery filters ListPosts. A nil Pinned matches both.
type PostQuery struct {
	UserID string
	FarmID string
	Status schema.ProductStatus
	Pinned *bool
	Skip   int
	Limit  int
}

// PostPage is one page of posts.
type PostPage struct {
	PostData []Post `json:"postData"`
	Total    int64  `json:"total"`
}

// ProfileQuery filters ListProfiles. Cursor comes from a previous page.
type ProfileQuery struct {
	UserID   string
	Username string
	Email    string
	Cursor   string
	Limit    int
}

// ProfilePage is one keyset page of profiles. NextCursor is empty on the
// last page.
type ProfilePage struct {
	Profiles   []Profile `json:"profiles"`
	NextCursor string    `json:"-"`
}

// UsersPage is one page of the page-numbered listing.
type UsersPage struct {
	Users []Profile `json:"users"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int64     `json:"total"`
}

// Deleted confirms a deletion.
type Deleted struct {
	Message string `json:"message"`
	ID      string `json:"_id"`
}
