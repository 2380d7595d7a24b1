package farms

import "github.com/harvestbridge/harvest-bridge/internal/schema"

// FarmListInput for GET /api/farmdataapi
type FarmListInput struct {
	UserID string `query:"userId" doc:"Only farms owned by this user"`
	Mine   bool   `query:"mine"   doc:"Only the caller's farms; requires authentication"`
	Skip   int    `query:"skip"   doc:"Farms to skip"                                     minimum:"0"`
	Limit  int    `query:"limit"  doc:"Maximum farms per page"                             minimum:"0" maximum:"100" default:"20"`
}

// FarmCreateInput for POST /api/farmdataapi
type FarmCreateInput struct {
	Body schema.FarmProfile
}

// FarmGetInput for GET /api/farmdataapi/{id}
type FarmGetInput struct {
	ID string `path:"id" doc:"Farm id"`
}

// FarmReplaceInput for PUT /api/farmdataapi/{id}
type FarmReplaceInput struct {
	ID   string `path:"id" doc:"Farm id"`
	Body schema.FarmProfile
}

// FarmDeleteInput for DELETE /api/farmdataapi/{id}
type FarmDeleteInput struct {
	ID string `path:"id" doc:"Farm id"`
}
