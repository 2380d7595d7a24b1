package farms

import (
	"github.com/harvestbridge/harvest-bridge/internal/platform/timeutil"
	farmsvc "github.com/harvestbridge/harvest-bridge/internal/service/farm"
)

// Farm is the farm document returned by the API.
type Farm struct {
	ID                   string        `json:"_id"                            doc:"Unique identifier"          example:"0b7c6f1e-3c1a-4a57-9f55-3f0a0e2f4d10"`
	UserID               string        `json:"userId"                         doc:"Owner's user id"`
	FarmName             string        `json:"farmName"                       example:"Green Acres"`
	FarmLocation         string        `json:"farmLocation"`
	FarmSize             float64       `json:"farmSize"                       doc:"Size in acres"`
	GPSAddress           string        `json:"gpsAddress,omitempty"`
	ProductionScale      string        `json:"productionScale"                enum:"Small,Medium,Large"`
	OwnershipStatus      string        `json:"ownershipStatus"                enum:"Owned,Leased,Rented,Communal,Family"`
	FullName             string        `json:"fullName"`
	ContactPhone         string        `json:"contactPhone"`
	Email                string        `json:"email,omitempty"`
	Gender               string        `json:"gender"                         enum:"Male,Female,Other"`
	FarmType             string        `json:"farmType"                       enum:"Crop,Livestock,Mixed,Aquaculture,Poultry"`
	CropsGrown           []string      `json:"cropsGrown"`
	LivestockProduced    []string      `json:"livestockProduced"`
	BelongsToCooperative bool          `json:"belongsToCooperative"`
	CooperativeName      string        `json:"cooperativeName,omitempty"`
	CooperativeExecutive string        `json:"cooperativeExecutive,omitempty"`
	FarmImages           []string      `json:"farmImages"                     doc:"Stored image URLs"`
	CreatedAt            timeutil.Time `json:"createdAt"                      doc:"Creation timestamp"         example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt            timeutil.Time `json:"updatedAt"                      doc:"Last update timestamp"      example:"2024-01-15T10:30:00.000Z"`
}

func toHTTPFarm(f *farmsvc.Farm) Farm {
	return Farm{
		ID:                   f.ID,
		UserID:               f.UserID,
		FarmName:             f.FarmName,
		FarmLocation:         f.FarmLocation,
		FarmSize:             f.FarmSize,
		GPSAddress:           f.GPSAddress,
		ProductionScale:      f.ProductionScale,
		OwnershipStatus:      f.OwnershipStatus,
		FullName:             f.FullName,
		ContactPhone:         f.ContactPhone,
		Email:                f.Email,
		Gender:               f.Gender,
		FarmType:             f.FarmType,
		CropsGrown:           nonNil(f.CropsGrown),
		LivestockProduced:    nonNil(f.LivestockProduced),
		BelongsToCooperative: f.BelongsToCooperative,
		CooperativeName:      f.CooperativeName,
		CooperativeExecutive: f.CooperativeExecutive,
		FarmImages:           nonNil(f.FarmImages),
		CreatedAt:            timeutil.NewTime(f.CreatedAt),
		UpdatedAt:            timeutil.NewTime(f.UpdatedAt),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
