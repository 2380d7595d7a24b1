package profile

import (
	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	profilesvc "github.com/harvestbridge/harvest-bridge/internal/service/profile"
)

// SocialMediaLinks of a profile.
type SocialMediaLinks struct {
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Rating is one review on a profile.
type Rating struct {
	FarmerRating float64       `json:"farmer_rating"    example:"4.5"`
	Review       string        `json:"review,omitempty"`
	RaterID      string        `json:"raterId"          doc:"User who left the rating"`
	CreatedAt    timeutil.Time `json:"createdAt"`
}

// Profile is the user profile returned by the API.
type Profile struct {
	ID               string           `json:"_id"                      doc:"Unique identifier"`
	UserID           string           `json:"userId"                   doc:"Owning user id"                     example:"firebase-uid-123"`
	Email            string           `json:"email"                                                             example:"jane@example.com"`
	Username         string           `json:"username"                                                          example:"jane.doe"`
	FullName         string           `json:"fullName"                                                          example:"Jane Doe"`
	Bio              string           `json:"bio,omitempty"`
	ProfilePicture   string           `json:"profilePicture,omitempty" doc:"Stored picture URL"`
	Role             string           `json:"role"                     enum:"Farmer,Buyer"`
	PhoneNumber      string           `json:"phoneNumber,omitempty"`
	Country          string           `json:"country,omitempty"`
	SocialMediaLinks SocialMediaLinks `json:"socialMediaLinks"`
	Verified         bool             `json:"verified"                 doc:"Set by moderators only"`
	Ratings          []Rating         `json:"ratings"`
	AverageRating    float64          `json:"averageRating"            doc:"Mean rating, two decimals"          example:"4.25"`
	RatingCount      int              `json:"ratingCount"`
	CreatedAt        timeutil.Time    `json:"createdAt"                example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt        timeutil.Time    `json:"updatedAt"                example:"2024-01-15T10:30:00.000Z"`
}

// FromService converts a stored profile into its API shape.
func FromService(p *profilesvc.Profile) Profile {
	ratings := make([]Rating, 0, len(p.Ratings))
	for _, r := range p.Ratings {
		ratings = append(ratings, Rating{
			FarmerRating: r.FarmerRating,
			Review:       r.Review,
			RaterID:      r.RaterID,
			CreatedAt:    timeutil.NewTime(r.CreatedAt),
		})
	}
	return Profile{
		ID:               p.ID,
		UserID:           p.UserID,
		Email:            p.Email,
		Username:         p.Username,
		FullName:         p.FullName,
		Bio:              p.Bio,
		ProfilePicture:   p.ProfilePicture,
		Role:             p.Role,
		PhoneNumber:      p.PhoneNumber,
		Country:          p.Country,
		SocialMediaLinks: SocialMediaLinks(p.SocialMediaLinks),
		Verified:         p.Verified,
		Ratings:          ratings,
		AverageRating:    p.AverageRating(),
		RatingCount:      p.RatingCount(),
		CreatedAt:        timeutil.NewTime(p.CreatedAt),
		UpdatedAt:        timeutil.NewTime(p.UpdatedAt),
	}
}
