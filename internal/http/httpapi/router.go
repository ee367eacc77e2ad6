package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"imagestudio/internal/http/handlers"
	"imagestudio/internal/infra"
	"imagestudio/internal/middleware"
	"imagestudio/web"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config        *infra.Config
	Logger        zerolog.Logger
	App           *handlers.App
	Limiter       *middleware.RateLimiter
	CountryLookup middleware.CountryLookup
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(d.Logger),
		chimw.Recoverer,
		middleware.CORS(d.Config.CORSAllowedOrigins),
		middleware.Locale(d.Config.DefaultLocale, d.CountryLookup),
	)

	// Health
	r.Get("/v1/healthz", d.App.Health)
	r.Get("/v1/openapi.json", d.App.OpenAPIJSON)
	r.Get("/v1/docs", d.App.OpenAPIDocs)

	// Page
	r.Get("/", web.Index)
	r.Handle("/static/*", web.Assets())

	r.Route("/api", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		r.Use(middleware.Sessions(d.App.Sessions, d.Config.CookieSecure))

		r.Get("/state", d.App.State)
		r.Post("/session", d.App.Login)
		r.Delete("/session", d.App.Logout)

		r.Route("/workspace", func(r chi.Router) {
			r.Use(d.App.RequireCredential)
			r.Post("/images", d.App.UploadImages)
			r.Delete("/images/{index}", d.App.RemoveImage)
			r.Put("/prompt", d.App.SetPrompt)
			r.Post("/generate", d.App.Generate)
			r.Post("/reset", d.App.Reset)
			r.Get("/image/download", d.App.DownloadImage)
		})
	})

	return r
}
