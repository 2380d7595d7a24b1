package profile

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/harvestbridge/harvest-bridge/internal/media"
	"github.com/harvestbridge/harvest-bridge/internal/platform/auth"
	"github.com/harvestbridge/harvest-bridge/internal/platform/pagination"
	"github.com/harvestbridge/harvest-bridge/internal/platform/respond"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
	profilesvc "github.com/harvestbridge/harvest-bridge/internal/service/profile"
)

const (
	basePath    = "/api/profileApi"
	cursorType  = "profile"
	msgNotFound = "profile not found"
)

// Register registers profile endpoints.
func Register(api huma.API, svc profilesvc.Service, offloader *media.Offloader) {
	h := &handler{svc: svc, offloader: offloader}

	huma.Register(api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List profiles",
		Description: "Finds profiles by userId, username or email, or lists all of them ordered by userId. Follow the Link header for the next page.",
		Tags:        []string{"Profiles"},
	}, h.list)

	huma.Register(api, huma.Operation{
		OperationID:   "create-profile",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Create profile",
		Description:   "Creates the caller's profile. Email and username must be unused.",
		Tags:          []string{"Profiles"},
		DefaultStatus: http.StatusCreated,
		Security:      auth.Required,
	}, h.create)

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        basePath + "/{id}",
		Summary:     "Get profile",
		Tags:        []string{"Profiles"},
	}, h.get)

	huma.Register(api, huma.Operation{
		OperationID: "rate-profile",
		Method:      http.MethodPost,
		Path:        basePath + "/{id}",
		Summary:     "Rate profile",
		Description: "Appends a rating from the caller. Ratings cannot be edited or removed.",
		Tags:        []string{"Profiles"},
		Security:    auth.Required,
	}, h.rate)

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPut,
		Path:        basePath + "/{id}",
		Summary:     "Update profile",
		Description: "Replaces the editable fields of the caller's profile.",
		Tags:        []string{"Profiles"},
		Security:    auth.Required,
	}, h.update)

	huma.Register(api, huma.Operation{
		OperationID: "upload-profile-picture",
		Method:      http.MethodPut,
		Path:        basePath + "/{id}/picture",
		Summary:     "Upload profile picture",
		Tags:        []string{"Profiles"},
		Security:    auth.Required,
	}, h.picture)

	huma.Register(api, huma.Operation{
		OperationID: "delete-profile",
		Method:      http.MethodDelete,
		Path:        basePath + "/{id}",
		Summary:     "Delete profile",
		Description: "Deletes the caller's profile. Farms and posts are removed later by reconciliation.",
		Tags:        []string{"Profiles"},
		Security:    auth.Required,
	}, h.delete)
}

type handler struct {
	svc       profilesvc.Service
	offloader *media.Offloader
}

func (h *handler) list(ctx context.Context, input *ProfileListInput) (*ProfileListOutput, error) {
	after, err := pagination.DecodeFor(input.Cursor, cursorType)
	if err != nil {
		return nil, respond.Error(ctx, http.StatusBadRequest, "invalid cursor format")
	}
	limit := input.DefaultLimit()
	filter := profilesvc.ListFilter{
		UserID:   input.UserID,
		Username: input.Username,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		After:    after,
		Limit:    limit + 1,
	}
	rows, err := h.svc.List(ctx, filter)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	page := pagination.Trim(rows, limit, cursorType, func(p profilesvc.Profile) string { return p.UserID })

	query := url.Values{}
	for key, value := range map[string]string{"userId": input.UserID, "username": input.Username, "email": input.Email} {
		if value != "" {
			query.Set(key, value)
		}
	}
	if input.Limit > 0 {
		query.Set("limit", strconv.Itoa(input.Limit))
	}

	out := &ProfileListOutput{
		Link: pagination.NextLink(basePath, query, page.Next),
		Body: ProfileListBody{Profiles: make([]Profile, 0, len(page.Items))},
	}
	for i := range page.Items {
		out.Body.Profiles = append(out.Body.Profiles, FromService(&page.Items[i]))
	}
	return out, nil
}

func (h *handler) create(ctx context.Context, input *ProfileCreateInput) (*ProfileCreateOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	in := input.Body
	if err := schema.Parse(&in); err != nil {
		return nil, respond.Invalid(ctx, err)
	}
	submitted := in.ProfilePicture
	if in.ProfilePicture, err = h.resolvePicture(ctx, user.UID, in.ProfilePicture); err != nil {
		return nil, err
	}

	profile, err := h.svc.Create(ctx, user.UID, in)
	if err != nil {
		h.releaseUploaded(ctx, user.UID, in.ProfilePicture, submitted)
		return nil, mapServiceError(ctx, err)
	}
	return &ProfileCreateOutput{
		Location: basePath + "/" + profile.UserID,
		Body:     FromService(profile),
	}, nil
}

func (h *handler) get(ctx context.Context, input *ProfileGetInput) (*ProfileOutput, error) {
	profile, err := h.svc.Get(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	return &ProfileOutput{Body: FromService(profile)}, nil
}

func (h *handler) rate(ctx context.Context, input *ProfileRateInput) (*ProfileOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	in := input.Body
	if err := schema.Parse(&in); err != nil {
		return nil, respond.Invalid(ctx, err)
	}
	profile, err := h.svc.AddRating(ctx, input.ID, user.UID, in)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	return &ProfileOutput{Body: FromService(profile)}, nil
}

func (h *handler) update(ctx context.Context, input *ProfileUpdateInput) (*ProfileOutput, error) {
	user, err := auth.RequireSelf(ctx, input.ID, msgNotFound)
	if err != nil {
		return nil, err
	}
	in := input.Body
	if err := schema.Parse(&in); err != nil {
		return nil, respond.Invalid(ctx, err)
	}
	current, err := h.svc.Get(ctx, user.UID)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}

	submitted := in.ProfilePicture
	if in.ProfilePicture, err = h.resolvePicture(ctx, user.UID, in.ProfilePicture); err != nil {
		return nil, err
	}
	profile, err := h.svc.Update(ctx, user.UID, in)
	if err != nil {
		h.releaseUploaded(ctx, user.UID, in.ProfilePicture, submitted)
		return nil, mapServiceError(ctx, err)
	}
	if current.ProfilePicture != profile.ProfilePicture {
		h.offloader.Release(ctx, media.KindProfile, current.UserID, current.ProfilePicture)
	}
	return &ProfileOutput{Body: FromService(profile)}, nil
}

func (h *handler) picture(ctx context.Context, input *ProfilePictureInput) (*ProfileOutput, error) {
	user, err := auth.RequireSelf(ctx, input.ID, msgNotFound)
	if err != nil {
		return nil, err
	}
	in := input.Body
	if err := schema.Parse(&in); err != nil {
		return nil, respond.Invalid(ctx, err)
	}
	current, err := h.svc.Get(ctx, user.UID)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}

	pictureURL, err := h.resolvePicture(ctx, user.UID, in.ProfilePicture)
	if err != nil {
		return nil, err
	}
	profile, err := h.svc.SetPicture(ctx, user.UID, pictureURL)
	if err != nil {
		h.releaseUploaded(ctx, user.UID, pictureURL, in.ProfilePicture)
		return nil, mapServiceError(ctx, err)
	}
	if current.ProfilePicture != profile.ProfilePicture {
		h.offloader.Release(ctx, media.KindProfile, current.UserID, current.ProfilePicture)
	}
	return &ProfileOutput{Body: FromService(profile)}, nil
}

func (h *handler) delete(ctx context.Context, input *ProfileDeleteInput) (*ProfileDeleteOutput, error) {
	user, err := auth.RequireSelf(ctx, input.ID, msgNotFound)
	if err != nil {
		return nil, err
	}
	profile, err := h.svc.Delete(ctx, user.UID)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	if profile.ProfilePicture != "" {
		h.offloader.Release(ctx, media.KindProfile, profile.UserID, profile.ProfilePicture)
	}
	return &ProfileDeleteOutput{Body: DeleteBody{Message: "profile deleted", ID: profile.ID}}, nil
}

func (h *handler) resolvePicture(ctx context.Context, owner, ref string) (string, error) {
	out, err := h.offloader.ResolveOne(ctx, owner, media.KindProfile, "profilePicture", ref)
	if err == nil {
		return out, nil
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return "", respond.Invalid(ctx, err)
	}
	return "", respond.Error(ctx, http.StatusInternalServerError, "", err)
}

// releaseUploaded drops a picture stored by this request when the write
// that should have referenced it failed.
func (h *handler) releaseUploaded(ctx context.Context, owner, stored, submitted string) {
	if stored != "" && stored != submitted {
		h.offloader.Release(ctx, media.KindProfile, owner, stored)
	}
}

func mapServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, profilesvc.ErrNotFound):
		return respond.Error(ctx, http.StatusNotFound, msgNotFound)
	case errors.Is(err, profilesvc.ErrAlreadyExists):
		return respond.Error(ctx, http.StatusConflict, "profile already exists")
	case errors.Is(err, profilesvc.ErrEmailTaken):
		return conflict(ctx, "email", err)
	case errors.Is(err, profilesvc.ErrUsernameTaken):
		return conflict(ctx, "username", err)
	case errors.Is(err, profilesvc.ErrSelfRating):
		return respond.Error(ctx, http.StatusBadRequest, "you cannot rate your own profile")
	default:
		return respond.Error(ctx, http.StatusInternalServerError, "", err)
	}
}

func conflict(ctx context.Context, field string, err error) error {
	return respond.Error(ctx, http.StatusConflict, "profile conflicts with an existing one", &huma.ErrorDetail{
		Location: "body." + field,
		Message:  err.Error(),
	})
}
