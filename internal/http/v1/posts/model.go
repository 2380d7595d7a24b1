package posts

import (
	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	postsvc "github.com/harvestbridge/harvest-bridge/internal/service/post"
)

// Product is the item offered by a post.
type Product struct {
	Item     string  `json:"item"     example:"Maize"`
	Quantity float64 `json:"quantity" example:"50"`
	Price    float64 `json:"price"    example:"120"`
	Unit     string  `json:"unit"     example:"bag"`
	Status   string  `json:"status"   enum:"available,pending,sold"`
}

// HarvestDetails describe the produce.
type HarvestDetails struct {
	HarvestDate   string `json:"harvest_date,omitempty"   example:"2024-06-01"`
	QualityGrade  string `json:"quality_grade,omitempty"`
	Certification string `json:"certification,omitempty"`
	StorageMethod string `json:"storage_method,omitempty"`
}

// Pricing terms.
type Pricing struct {
	Negotiable bool    `json:"negotiable"`
	Discount   float64 `json:"discount"`
	Currency   string  `json:"currency,omitempty" example:"KES"`
}

// Logistics of delivery and pickup.
type Logistics struct {
	DeliveryAvailable bool    `json:"delivery_available"`
	DeliveryArea      string  `json:"delivery_area,omitempty"`
	PickupLocation    string  `json:"pickup_location,omitempty"`
	DeliveryFee       float64 `json:"delivery_fee"`
}

// Post is the ad document returned by the API.
type Post struct {
	ID             string         `json:"_id"                     doc:"Unique identifier"`
	UserID         string         `json:"userId"                  doc:"Owner's user id"`
	FarmID         string         `json:"farmId,omitempty"        doc:"Farm the post was created for"`
	FarmName       string         `json:"farm_name,omitempty"     doc:"Copied from the farm at write time"`
	FarmLocation   string         `json:"farm_location,omitempty" doc:"Copied from the farm at write time"`
	Product        Product        `json:"product"`
	HarvestDetails HarvestDetails `json:"harvest_details"`
	Pricing        Pricing        `json:"pricing"`
	Logistics      Logistics      `json:"logistics"`
	Description    string         `json:"description,omitempty"`
	AddImages      []string       `json:"add_images"              doc:"Stored image URLs"`
	Pinned         bool           `json:"pinned"`
	Favorite       bool           `json:"favorite"`
	Wishlist       bool           `json:"wishlist"`
	Verified       bool           `json:"verified"                doc:"Set by moderators only"`
	CreatedAt      timeutil.Time  `json:"createdAt"               example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt      timeutil.Time  `json:"updatedAt"               example:"2024-01-15T10:30:00.000Z"`
}

func toHTTPPost(p *postsvc.Post) Post {
	images := p.AddImages
	if images == nil {
		images = []string{}
	}
	return Post{
		ID:             p.ID,
		UserID:         p.UserID,
		FarmID:         p.FarmID,
		FarmName:       p.FarmName,
		FarmLocation:   p.FarmLocation,
		Product:        Product(p.Product),
		HarvestDetails: HarvestDetails(p.HarvestDetails),
		Pricing:        Pricing(p.Pricing),
		Logistics:      Logistics(p.Logistics),
		Description:    p.Description,
		AddImages:      images,
		Pinned:         p.Pinned,
		Favorite:       p.Favorite,
		Wishlist:       p.Wishlist,
		Verified:       p.Verified,
		CreatedAt:      timeutil.NewTime(p.CreatedAt),
		UpdatedAt:      timeutil.NewTime(p.UpdatedAt),
	}
}
