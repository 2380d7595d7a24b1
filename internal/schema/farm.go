package schema

import "github.com/go-playground/validator/v10"

// ProductionScale classifies farm output.
type ProductionScale string

const (
	ScaleSmall  ProductionScale = "Small"
	ScaleMedium ProductionScale = "Medium"
	ScaleLarge  ProductionScale = "Large"
)

// OwnershipStatus describes land tenure.
type OwnershipStatus string

const (
	OwnershipOwned    OwnershipStatus = "Owned"
	OwnershipLeased   OwnershipStatus = "Leased"
	OwnershipRented   OwnershipStatus = "Rented"
	OwnershipCommunal OwnershipStatus = "Communal"
	OwnershipFamily   OwnershipStatus = "Family"
)

// Gender of the farm's contact person.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// FarmType is the main activity of a farm.
type FarmType string

const (
	FarmCrop        FarmType = "Crop"
	FarmLivestock   FarmType = "Livestock"
	FarmMixed       FarmType = "Mixed"
	FarmAquaculture FarmType = "Aquaculture"
	FarmPoultry     FarmType = "Poultry"
)

// FarmProfile is the create and replace payload of a farm.
type FarmProfile struct {
	_ struct{} `json:"-" additionalProperties:"true"`

	FarmName             string          `json:"farmName"                       validate:"required,min=2,max=100"                                          example:"Green Acres"`
	FarmLocation         string          `json:"farmLocation"                   validate:"required,max=200"                                                example:"12 Rural Rd, County"`
	FarmSize             *float64        `json:"farmSize"                       validate:"required,gte=0"                                                  doc:"Size in acres"`
	GPSAddress           string          `json:"gpsAddress,omitempty"           validate:"max=100"`
	ProductionScale      ProductionScale `json:"productionScale"                validate:"required,oneof=Small Medium Large"`
	OwnershipStatus      OwnershipStatus `json:"ownershipStatus"                validate:"required,oneof=Owned Leased Rented Communal Family"`
	FullName             string          `json:"fullName"                       validate:"required,min=2,max=100"`
	ContactPhone         string          `json:"contactPhone"                   validate:"required,min=10,max=20,phone"`
	Email                string          `json:"email,omitempty"                validate:"omitempty,email,max=254"`
	Gender               Gender          `json:"gender"                         validate:"required,oneof=Male Female Other"`
	FarmType             FarmType        `json:"farmType"                       validate:"required,oneof=Crop Livestock Mixed Aquaculture Poultry"`
	CropsGrown           []string        `json:"cropsGrown,omitempty"           validate:"max=50,dive,max=100"`
	LivestockProduced    []string        `json:"livestockProduced,omitempty"    validate:"max=50,dive,max=100"`
	BelongsToCooperative bool            `json:"belongsToCooperative,omitempty"`
	CooperativeName      string          `json:"cooperativeName,omitempty"      validate:"max=100"`
	CooperativeExecutive string          `json:"cooperativeExecutive,omitempty" validate:"max=100"`
	FarmImages           []string        `json:"farmImages,omitempty"           validate:"max=10,dive,image_ref"                                           doc:"Image URLs or base64 data URIs"`
}

// Normalize implements Normalizer.
func (f *FarmProfile) Normalize() {
	trim(&f.FarmName, &f.FarmLocation, &f.GPSAddress, &f.FullName, &f.ContactPhone,
		&f.Email, &f.CooperativeName, &f.CooperativeExecutive)
	f.CropsGrown = trimAll(f.CropsGrown)
	f.LivestockProduced = trimAll(f.LivestockProduced)
	if !f.BelongsToCooperative {
		f.CooperativeName = ""
		f.CooperativeExecutive = ""
	}
}

// farmRefinement checks rules spanning several fields.
func farmRefinement(sl validator.StructLevel) {
	f, ok := sl.Current().Interface().(FarmProfile)
	if !ok || !f.BelongsToCooperative {
		return
	}
	if f.CooperativeName == "" {
		sl.ReportError(f.CooperativeName, "cooperativeName", "CooperativeName", "cooperative", "")
	}
	if f.CooperativeExecutive == "" {
		sl.ReportError(f.CooperativeExecutive, "cooperativeExecutive", "CooperativeExecutive", "cooperative", "")
	}
}
