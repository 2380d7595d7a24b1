package app

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/harvestbridge/harvest-bridge/internal/http/health"
	"github.com/harvestbridge/harvest-bridge/internal/http/v1/routes"
	"github.com/harvestbridge/harvest-bridge/internal/platform/apidoc"
	"github.com/harvestbridge/harvest-bridge/internal/platform/auth"
	applog "github.com/harvestbridge/harvest-bridge/internal/platform/logging"
	appmiddleware "github.com/harvestbridge/harvest-bridge/internal/platform/middleware"
	"github.com/harvestbridge/harvest-bridge/internal/platform/respond"
)

const (
	docsPath = "/api-docs"
	// Ten data-URI images of up to 5 MiB each, base64-inflated.
	maxBodyBytes = 70 << 20
)

// Handler builds the HTTP stack: middleware, error envelope, API operations,
// health, metrics and in-memory media.
func (a *App) Handler(version string, metrics *appmiddleware.Metrics) http.Handler {
	respond.Install()

	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	router.Use(
		appmiddleware.Security(docsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(a.Config.CORSOrigins...),
		appmiddleware.RequestID(),
		// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxBodyBytes),
		applog.RequestLogger(),
		applog.AccessLogger(),
		metrics.Middleware(),
		respond.Recoverer(),
	)

	router.Get("/health", health.Handler(a.Checks))
	router.Handle("/metrics", metrics.Handler())
	if a.MediaHandler != nil {
		router.Handle("/media/*", http.StripPrefix("/media/", a.MediaHandler))
	}

	api := humachi.New(router, apiConfig(version))
	routes.Register(api, a.Verifier, a.Services, a.Offloader)
	return router
}

func apiConfig(version string) huma.Config {
	cfg := apidoc.Config("Harvest Bridge API", version)
	cfg.DocsPath = docsPath
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		auth.SchemeBearer: {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
	}
	// Document CBOR next to JSON for every body.
	cfg.OnAddOperation = append(cfg.OnAddOperation, func(_ *huma.OpenAPI, op *huma.Operation) {
		if op.RequestBody != nil && op.RequestBody.Content != nil {
			if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
				op.RequestBody.Content["application/cbor"] = jsonContent
			}
		}
		for _, resp := range op.Responses {
			if resp.Content == nil {
				continue
			}
			if jsonContent, ok := resp.Content["application/json"]; ok {
				resp.Content["application/cbor"] = jsonContent
			}
		}
	})
	return cfg
}
