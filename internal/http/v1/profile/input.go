package profile

import (
	"github.com/harvestbridge/harvest-bridge/internal/platform/pagination"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// ProfileListInput for GET /api/profileApi
type ProfileListInput struct {
	pagination.Params
	UserID   string `query:"userId"   doc:"Exact user id"`
	Username string `query:"username" doc:"Exact username"`
	Email    string `query:"email"    doc:"Exact email, case-insensitive"`
}

// ProfileCreateInput for POST /api/profileApi
type ProfileCreateInput struct {
	Body schema.UserProfile
}

// ProfileGetInput for GET /api/profileApi/{id}
type ProfileGetInput struct {
	ID string `path:"id" doc:"User id"`
}

// ProfileRateInput for POST /api/profileApi/{id}
type ProfileRateInput struct {
	ID   string `path:"id" doc:"User id of the rated profile"`
	Body schema.Rating
}

// ProfileUpdateInput for PUT /api/profileApi/{id}
type ProfileUpdateInput struct {
	ID   string `path:"id" doc:"User id"`
	Body schema.UserProfile
}

// ProfilePictureInput for PUT /api/profileApi/{id}/picture
type ProfilePictureInput struct {
	ID   string `path:"id" doc:"User id"`
	Body schema.PictureUpload
}

// ProfileDeleteInput for DELETE /api/profileApi/{id}
type ProfileDeleteInput struct {
	ID string `path:"id" doc:"User id"`
}
