package schema

import "strings"

// ProductStatus is the sale state of a listing.
type ProductStatus string

const (
	StatusAvailable ProductStatus = "available"
	StatusPending   ProductStatus = "pending"
	StatusSold      ProductStatus = "sold"
)

// Flag names one of the boolean marketplace markers on a post.
type Flag string

const (
	FlagPinned   Flag = "pinned"
	FlagFavorite Flag = "favorite"
	FlagWishlist Flag = "wishlist"
)

// Flags lists every Flag.
func Flags() []Flag {
	return []Flag{FlagPinned, FlagFavorite, FlagWishlist}
}

// Valid reports whether f is a known flag.
func (f Flag) Valid() bool {
	switch f {
	case FlagPinned, FlagFavorite, FlagWishlist:
		return true
	}
	return false
}

// Product is the item offered by a post.
type Product struct {
	Item     string        `json:"item"             validate:"required,max=100"                          example:"Maize"`
	Quantity *float64      `json:"quantity"         validate:"required,gte=0"                            example:"50"`
	Price    *float64      `json:"price"            validate:"required,gte=0"                            example:"120"`
	Unit     string        `json:"unit"             validate:"required,max=20"                           example:"bag"`
	Status   ProductStatus `json:"status,omitempty" validate:"omitempty,oneof=available pending sold"`
}

// HarvestDetails describe the produce.
type HarvestDetails struct {
	HarvestDate   string `json:"harvest_date,omitempty"   validate:"omitempty,datetime=2006-01-02"`
	QualityGrade  string `json:"quality_grade,omitempty"  validate:"max=50"`
	Certification string `json:"certification,omitempty"  validate:"max=100"`
	StorageMethod string `json:"storage_method,omitempty" validate:"max=100"`
}

// Pricing terms of a post.
type Pricing struct {
	Negotiable bool    `json:"negotiable,omitempty"`
	Discount   float64 `json:"discount,omitempty" validate:"gte=0,lte=100"`
	Currency   string  `json:"currency,omitempty" validate:"omitempty,iso4217"`
}

// Logistics of getting the produce to the buyer.
type Logistics struct {
	DeliveryAvailable bool    `json:"delivery_available,omitempty"`
	DeliveryArea      string  `json:"delivery_area,omitempty"   validate:"max=200"`
	PickupLocation    string  `json:"pickup_location,omitempty" validate:"max=200"`
	DeliveryFee       float64 `json:"delivery_fee,omitempty"    validate:"gte=0"`
}

// Post is the create and replace payload of an ad. When FarmID is set the
// server copies farm_name and farm_location from that farm.
type Post struct {
	_ struct{} `json:"-" additionalProperties:"true"`

	FarmID         string         `json:"farmId,omitempty"          validate:"max=64"`
	FarmName       string         `json:"farm_name,omitempty"       validate:"max=100"`
	FarmLocation   string         `json:"farm_location,omitempty"   validate:"max=200"`
	Product        Product        `json:"product"`
	HarvestDetails HarvestDetails `json:"harvest_details,omitempty"`
	Pricing        Pricing        `json:"pricing,omitempty"`
	Logistics      Logistics      `json:"logistics,omitempty"`
	Description    string         `json:"description,omitempty"     validate:"max=2000"`
	AddImages      []string       `json:"add_images,omitempty"      validate:"max=10,dive,image_ref" doc:"Image URLs or base64 data URIs"`
}

// Normalize implements Normalizer.
func (p *Post) Normalize() {
	trim(&p.FarmID, &p.FarmName, &p.FarmLocation, &p.Product.Item, &p.Product.Unit,
		&p.HarvestDetails.HarvestDate, &p.HarvestDetails.QualityGrade,
		&p.HarvestDetails.Certification, &p.HarvestDetails.StorageMethod,
		&p.Logistics.DeliveryArea, &p.Logistics.PickupLocation, &p.Description)
	p.Pricing.Currency = strings.ToUpper(strings.TrimSpace(p.Pricing.Currency))
	if p.Product.Status == "" {
		p.Product.Status = StatusAvailable
	}
}

// FlagToggle is the PATCH payload flipping one flag on a post.
type FlagToggle struct {
	Flag Flag `json:"flag" validate:"required,oneof=pinned favorite wishlist" enum:"pinned,favorite,wishlist"`
}
