package posts

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
	postsvc "github.com/harvestbridge/harvest-bridge/internal/service/post"
)

const (
	basePath    = "/api/posts.api"
	msgNotFound = "post not found"
)

// Register registers post endpoints. farms resolves the farmId of a post.
func Register(api huma.API, svc postsvc.Service, farms farmsvc.Service, offloader *media.Offloader) {
	h := &handler{svc: svc, farms: farms, offloader: offloader}

	huma.Register(api, huma.Operation{
		OperationID: "list-posts",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "List posts",
		Description: "Lists posts newest first.",
		Tags:        []string{"Posts"},
	}, h.list)

	huma.Register(api, huma.Operation{
		OperationID:   "create-post",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Create post",
		Description:   "Creates an ad owned by the caller. A farmId must name one of the caller's farms.",
		Tags:          []string{"Posts"},
		DefaultStatus: http.StatusCreated,
		Security:      auth.Required,
	}, h.create)

	huma.Register(api, huma.Operation{
		OperationID: "get-post",
		Method:      http.MethodGet,
		Path:        basePath + "/{id}",
		Summary:     "Get post",
		Tags:        []string{"Posts"},
	}, h.get)

	huma.Register(api, huma.Operation{
		OperationID: "replace-post",
		Method:      http.MethodPut,
		Path:        basePath + "/{id}",
		Summary:     "Replace post",
		Description: "Replaces the caller's post. Flags and verification are kept.",
		Tags:        []string{"Posts"},
		Security:    auth.Required,
	}, h.replace)

	huma.Register(api, huma.Operation{
		OperationID: "toggle-post-flag",
		Method:      http.MethodPatch,
		Path:        basePath + "/{id}",
		Summary:     "Toggle post flag",
		Description: "Flips pinned, favorite or wishlist on the caller's post.",
		Tags:        []string{"Posts"},
		Security:    auth.Required,
	}, h.toggle)

	huma.Register(api, huma.Operation{
		OperationID: "delete-post",
		Method:      http.MethodDelete,
		Path:        basePath + "/{id}",
		Summary:     "Delete post",
		Tags:        []string{"Posts"},
		Security:    auth.Required,
	}, h.delete)
}

type handler struct {
	svc       postsvc.Service
	farms     farmsvc.Service
	offloader *media.Offloader
}

func (h *handler) list(ctx context.Context, input *PostListInput) (*PostListOutput, error) {
	filter := postsvc.ListFilter{
		UserID: input.UserID,
		FarmID: input.FarmID,
		Status: schema.ProductStatus(input.Status),
		Skip:   input.Skip,
		Limit:  pagination.ClampLimit(input.Limit),
	}
	if input.Pinned != "" {
		pinned := input.Pinned == "true"
		filter.Pinned = &pinned
	}

	posts, total, err := h.svc.List(ctx, filter)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	out := &PostListOutput{Body: PostListBody{PostData: make([]Post, 0, len(posts)), Total: total}}
	for i := range posts {
		out.Body.PostData = append(out.Body.PostData, toHTTPPost(&posts[i]))
	}
	return out, nil
}

func (h *handler) create(ctx context.Context, input *PostCreateInput) (*PostCreateOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	in, err := h.prepare(ctx, user, input.Body)
	if err != nil {
		return nil, err
	}
	submitted := in.AddImages
	if in.AddImages, err = h.resolveImages(ctx, user.UID, in.AddImages); err != nil {
		return nil, err
	}

	post, err := h.svc.Create(ctx, user.UID, in)
	if err != nil {
		h.offloader.Release(ctx, media.KindPost, user.UID, media.Removed(in.AddImages, submitted)...)
		return nil, mapServiceError(ctx, err)
	}
	return &PostCreateOutput{
		Location: basePath + "/" + post.ID,
		Body:     toHTTPPost(post),
	}, nil
}

func (h *handler) get(ctx context.Context, input *PostGetInput) (*PostOutput, error) {
	post, err := h.svc.Get(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	return &PostOutput{Body: toHTTPPost(post)}, nil
}

func (h *handler) replace(ctx context.Context, input *PostReplaceInput) (*PostOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	current, err := h.svc.Get(ctx, input.ID)
	if err != nil || !auth.Owns(user, current.UserID) {
		return nil, mapServiceError(ctx, errOrNotFound(err))
	}
	in, err := h.prepare(ctx, user, input.Body)
	if err != nil {
		return nil, err
	}

	submitted := in.AddImages
	if in.AddImages, err = h.resolveImages(ctx, user.UID, in.AddImages); err != nil {
		return nil, err
	}
	post, err := h.svc.Replace(ctx, user.UID, input.ID, in)
	if err != nil {
		h.offloader.Release(ctx, media.KindPost, user.UID, media.Removed(in.AddImages, submitted)...)
		return nil, mapServiceError(ctx, err)
	}
	h.offloader.Release(ctx, media.KindPost, current.UserID, media.Removed(current.AddImages, post.AddImages)...)
	return &PostOutput{Body: toHTTPPost(post)}, nil
}

func (h *handler) toggle(ctx context.Context, input *PostToggleInput) (*PostOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	in := input.Body
	if err := schema.Parse(&in); err != nil {
		return nil, respond.Invalid(ctx, err)
	}
	post, err := h.svc.Toggle(ctx, user.UID, input.ID, in.Flag)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	return &PostOutput{Body: toHTTPPost(post)}, nil
}

func (h *handler) delete(ctx context.Context, input *PostDeleteInput) (*PostDeleteOutput, error) {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	post, err := h.svc.Delete(ctx, user.UID, input.ID)
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}
	h.offloader.Release(ctx, media.KindPost, post.UserID, post.AddImages...)
	return &PostDeleteOutput{Body: DeleteBody{Message: "post deleted", ID: post.ID}}, nil
}

// prepare validates the payload and sets the farm's name and location from
// the referenced farm, which must belong to the caller. Without a farmId the
// two fields are cleared; clients never set them.
func (h *handler) prepare(ctx context.Context, user *auth.User, in schema.Post) (schema.Post, error) {
	if err := schema.Parse(&in); err != nil {
		return in, respond.Invalid(ctx, err)
	}
	if in.FarmID == "" {
		in.FarmName, in.FarmLocation = "", ""
		return in, nil
	}
	farm, err := h.farms.Get(ctx, in.FarmID)
	switch {
	case errors.Is(err, farmsvc.ErrNotFound), err == nil && !auth.Owns(user, farm.UserID):
		return in, mapServiceError(ctx, postsvc.ErrInvalidReference)
	case err != nil:
		return in, respond.Error(ctx, http.StatusInternalServerError, "", err)
	}
	in.FarmName = farm.FarmName
	in.FarmLocation = farm.FarmLocation
	return in, nil
}

func (h *handler) resolveImages(ctx context.Context, owner string, refs []string) ([]string, error) {
	out, err := h.offloader.Resolve(ctx, owner, media.KindPost, "add_images", refs)
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
		return postsvc.ErrNotFound
	}
	return err
}

func mapServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, postsvc.ErrNotFound):
		return respond.Error(ctx, http.StatusNotFound, msgNotFound)
	case errors.Is(err, postsvc.ErrInvalidReference):
		return respond.Invalid(ctx, &schema.ValidationError{Issues: []schema.Issue{
			{Path: "farmId", Message: "must reference one of your farms"},
		}})
	case errors.Is(err, postsvc.ErrInvalidFlag):
		return respond.Invalid(ctx, &schema.ValidationError{Issues: []schema.Issue{
			{Path: "flag", Message: "must be one of: pinned, favorite, wishlist"},
		}})
	default:
		return respond.Error(ctx, http.StatusInternalServerError, "", err)
	}
}
