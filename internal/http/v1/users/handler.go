// Package users serves the legacy page-numbered profile listing.
package users

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	profilehttp "github.com/harvestbridge/harvest-bridge/internal/http/v1/profile"
	"github.com/harvestbridge/harvest-bridge/internal/platform/pagination"
	"github.com/harvestbridge/harvest-bridge/internal/platform/respond"
	profilesvc "github.com/harvestbridge/harvest-bridge/internal/service/profile"
)

// UsersPageInput for GET /api/users/{id}. The path segment is the page number.
type UsersPageInput struct {
	Page  int `path:"id"    doc:"1-based page number" minimum:"1" example:"1"`
	Limit int `query:"limit" doc:"Profiles per page"   minimum:"0" maximum:"100" default:"20"`
}

// UsersPageBody is one page of profiles, newest first.
type UsersPageBody struct {
	Users []profilehttp.Profile `json:"users"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
	Total int64                 `json:"total" doc:"Number of profiles"`
}

// UsersPageOutput for GET /api/users/{id}
type UsersPageOutput struct {
	Body UsersPageBody
}

// Register registers the legacy listing.
func Register(api huma.API, svc profilesvc.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users-page",
		Method:      http.MethodGet,
		Path:        "/api/users/{id}",
		Summary:     "List profiles by page",
		Description: "Offset pagination kept for older clients. Prefer /api/profileApi.",
		Tags:        []string{"Profiles"},
	}, func(ctx context.Context, input *UsersPageInput) (*UsersPageOutput, error) {
		limit := pagination.ClampLimit(input.Limit)
		rows, total, err := svc.Page(ctx, pagination.PageOffset(input.Page, limit), limit)
		if err != nil {
			return nil, respond.Error(ctx, http.StatusInternalServerError, "", err)
		}
		out := &UsersPageOutput{Body: UsersPageBody{
			Users: make([]profilehttp.Profile, 0, len(rows)),
			Page:  input.Page,
			Limit: limit,
			Total: total,
		}}
		for i := range rows {
			out.Body.Users = append(out.Body.Users, profilehttp.FromService(&rows[i]))
		}
		return out, nil
	})
}
