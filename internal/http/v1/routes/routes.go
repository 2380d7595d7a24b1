package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/harvestbridge/harvest-bridge/internal/http/v1/farms"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/posts"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/profile"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/users"
	"github.com/harvestbridge/harvest-bridge/internal/media"
	"github.com/harvestbridge/harvest-bridge/internal/platform/auth"
	farmsvc "github.com/harvestbridge/harvest-bridge/internal/service/farm"
	postsvc "github.com/harvestbridge/harvest-bridge/internal/service/post"
	profilesvc "github.com/harvestbridge/harvest-bridge/internal/service/profile"
)

// Services groups the stores behind the API.
type Services struct {
	Profiles profilesvc.Service
	Farms    farmsvc.Service
	Posts    postsvc.Service
}

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API, verifier auth.Verifier, svc Services, offloader *media.Offloader) {
	// Runs on every operation; only those declaring Security require a token.
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))

	farms.Register(api, svc.Farms, offloader)
	posts.Register(api, svc.Posts, svc.Farms, offloader)
	profile.Register(api, svc.Profiles, offloader)
	users.Register(api, svc.Profiles)
}
