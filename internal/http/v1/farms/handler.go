package farms

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/harvestbridge/harvest-bridge/internal/media"
	"github.com/harvestbridge/harvest-bridge/internal/platform/auth"
	"github.com/harvestbridge/harvest-bridge/internal/platform/pagination"
	"github.com/harvestbridge/harvest-bridge/internal/platform/respond"
	"github.com/harvestbridge/harvest-bridge/internal/schema"
	farmsvc "github.com/harvestbridge/harvest-bridge/internal/service/farm"
)

const (
	basePath    = "/api/farmdataapi"
	msgNotFound = "farm not found"
)

// Register registers farm endpoints.
func Register(api huma.API, svc farmsvc.Service, offloader *media.Offloader) {
	h := &handler{svc: svc, offloader: offloader}

	huma.Register(api, huma.Operation{
		OperationID: "list-farms",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List farms",
		Description: "Lists farms newest first. `mine=true` restricts the list to the caller's farms.",
		Tags:        []string{"Farms"},
		Security:    auth.Optional,
	}, h.list)

	huma.Register(api, huma.Operation{
		OperationID:   "create-farm",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Create farm",
		Description:   "Creates a farm owned by the caller. Images may be URLs or base64 data URIs.",
		Tags:          []string{"Farms"},
		DefaultStatus: http.StatusCreated,
		Security:      auth.Required,
	}, h.create)

	huma.Register(api, huma.Operation{
		OperationID: "get-farm",
		Method:      http.MethodGet,
		Path:        basePath + "/{id}",
		Summary:     "Get farm",
		Tags:        []string{"Farms"},
	}, h.get)

	huma.Register(api, huma.Operation{
		OperationID: "replace-farm",
		Method:      http.MethodPut,
		Path:        basePath + "/{id}",
		Summary:     "Replace farm",
		Description: "Replaces the caller's farm. Farms of other users are reported as not found.",
		Tags:        []string{"Farms"},
		Security:    auth.Required,
	}, h.replace)

	huma.Register(api, huma.Operation{
		OperationID: "delete-farm",
		Method:      http.MethodDelete,
		Path:        basePath + "/{id}",
		Summary:     "Delete farm",
		Tags:        []string{"Farms"},
		Security:    auth.Required,
	}, h.delete)
}

type handler struct {
	svc       farmsvc.Service
	offloader *media.Offloader
}

func (h *handler) list(ctx context.Context, input *FarmListInput) (*FarmListOutput, error) {
	filter := farmsvc.ListFilter{
		UserID: input.UserID,
		Skip:   input.Skip,
		Limit:  pagination.ClampLimit(input.Limit),
	}
	if input.Mine {
		user, err := auth.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		filter.UserID = user.UID
	}

	farms, total, err := h.svc.List(ctx, filter)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	out := &FarmListOutput{Body: FarmListBody{FarmData: make([]Farm, 0, len(farms)), Total: total}}
	for i := range farms {
		out.Body.FarmData = append(out.Body.FarmData, toHTTPFarm(&farms[i]))
	}
	return out, nil
}

func (h *handler) create(ctx context.Context, input *FarmCreateInput) (*FarmCreateOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	in := input.Body
	if err := schema.Parse(&in); err != nil {
		return nil, respond.Invalid(ctx, err)
	}
	submitted := in.FarmImages
	if in.FarmImages, err = h.resolveImages(ctx, user.UID, in.FarmImages); err != nil {
		return nil, err
	}

	farm, err := h.svc.Create(ctx, user.UID, in)
	if err != nil {
		h.offloader.Release(ctx, media.KindFarm, user.UID, media.Removed(in.FarmImages, submitted)...)
		return nil, mapServiceError(ctx, err)
	}
	return &FarmCreateOutput{
		Location: basePath + "/" + farm.ID,
		Body:     toHTTPFarm(farm),
	}, nil
}

func (h *handler) get(ctx context.Context, input *FarmGetInput) (*FarmOutput, error) {
	farm, err := h.svc.Get(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	return &FarmOutput{Body: toHTTPFarm(farm)}, nil
}

func (h *handler) replace(ctx context.Context, input *FarmReplaceInput) (*FarmOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	in := input.Body
	if err := schema.Parse(&in); err != nil {
		return nil, respond.Invalid(ctx, err)
	}
	current, err := h.svc.Get(ctx, input.ID)
	if err != nil || !auth.Owns(user, current.UserID) {
		return nil, mapServiceError(ctx, errOrNotFound(err))
	}

	submitted := in.FarmImages
	if in.FarmImages, err = h.resolveImages(ctx, user.UID, in.FarmImages); err != nil {
		return nil, err
	}
	farm, err := h.svc.Replace(ctx, user.UID, input.ID, in)
	if err != nil {
		h.offloader.Release(ctx, media.KindFarm, user.UID, media.Removed(in.FarmImages, submitted)...)
		return nil, mapServiceError(ctx, err)
	}
	h.offloader.Release(ctx, media.KindFarm, current.UserID, media.Removed(current.FarmImages, farm.FarmImages)...)
	return &FarmOutput{Body: toHTTPFarm(farm)}, nil
}

func (h *handler) delete(ctx context.Context, input *FarmDeleteInput) (*FarmDeleteOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	farm, err := h.svc.Delete(ctx, user.UID, input.ID)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	h.offloader.Release(ctx, media.KindFarm, farm.UserID, farm.FarmImages...)
	return &FarmDeleteOutput{Body: DeleteBody{Message: "farm deleted", ID: farm.ID}}, nil
}

// resolveImages uploads data URIs. Validation problems become a 400.
func (h *handler) resolveImages(ctx context.Context, owner string, refs []string) ([]string, error) {
	out, err := h.offloader.Resolve(ctx, owner, media.KindFarm, "farmImages", refs)
	if err == nil {
		return out, nil
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return nil, respond.Invalid(ctx, err)
	}
	return nil, respond.Error(ctx, http.StatusInternalServerError, "", err)
}

func errOrNotFound(err error) error {
	if err == nil {
		return farmsvc.ErrNotFound
	}
	return err
}

func mapServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, farmsvc.ErrNotFound):
		return respond.Error(ctx, http.StatusNotFound, msgNotFound)
	default:
		return respond.Error(ctx, http.StatusInternalServerError, "", err)
	}
}
