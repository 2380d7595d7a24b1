package schema

import "strings"

// Role of a marketplace user.
type Role string

const (
	RoleFarmer Role = "Farmer"
	RoleBuyer  Role = "Buyer"
)

// SocialMediaLinks of a profile. Every entry is optional.
type SocialMediaLinks struct {
	Facebook  string `json:"facebook,omitempty"  validate:"omitempty,http_url"`
	Twitter   string `json:"twitter,omitempty"   validate:"omitempty,http_url"`
	Instagram string `json:"instagram,omitempty" validate:"omitempty,http_url"`
	LinkedIn  string `json:"linkedin,omitempty"  validate:"omitempty,http_url"`
	Website   string `json:"website,omitempty"   validate:"omitempty,http_url"`
}

// UserProfile is the create and update payload of the caller's profile.
type UserProfile struct {
	_ struct{} `json:"-" additionalProperties:"true"`

	Email            string           `json:"email"                    validate:"required,email,max=254"               example:"jane@example.com"`
	Username         string           `json:"username"                 validate:"required,min=3,max=30,username"       example:"jane.doe"`
	FullName         string           `json:"fullName"                 validate:"required,min=2,max=100"               example:"Jane Doe"`
	Bio              string           `json:"bio,omitempty"            validate:"max=500"`
	ProfilePicture   string           `json:"profilePicture,omitempty" validate:"omitempty,image_ref"`
	Role             Role             `json:"role"                     validate:"required,oneof=Farmer Buyer"`
	PhoneNumber      string           `json:"phoneNumber,omitempty"    validate:"omitempty,min=7,max=20,phone"`
	Country          string           `json:"country,omitempty"        validate:"max=100"`
	SocialMediaLinks SocialMediaLinks `json:"socialMediaLinks,omitempty"`
}

// Normalize implements Normalizer.
func (p *UserProfile) Normalize() {
	trim(&p.Email, &p.Username, &p.FullName, &p.Bio, &p.ProfilePicture, &p.PhoneNumber, &p.Country,
		&p.SocialMediaLinks.Facebook, &p.SocialMediaLinks.Twitter, &p.SocialMediaLinks.Instagram,
		&p.SocialMediaLinks.LinkedIn, &p.SocialMediaLinks.Website)
	p.Email = strings.ToLower(p.Email)
}

// Rating is a review appended to a farmer's profile.
type Rating struct {
	FarmerRating *float64 `json:"farmer_rating"    validate:"required,gte=0,lte=5" example:"4.5"`
	Review       string   `json:"review,omitempty" validate:"max=1000"`
}

// Normalize implements Normalizer.
func (r *Rating) Normalize() {
	trim(&r.Review)
}

// PictureUpload replaces a profile picture.
type PictureUpload struct {
	ProfilePicture string `json:"profilePicture" validate:"required,image_ref"`
}

// Normalize implements Normalizer.
func (p *PictureUpload) Normalize() {
	trim(&p.ProfilePicture)
}
