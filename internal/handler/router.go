package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/auth"
	"github.com/tmarlen/quillpost/internal/metrics"
	"github.com/tmarlen/quillpost/internal/repository"
	"github.com/tmarlen/quillpost/internal/service"
	"github.com/tmarlen/quillpost/internal/storage"
)

// Deps bundles everything the router needs.
type Deps struct {
	Auth   *service.AuthService
	Posts  *service.PostService
	Export *service.ExportService
	Users  *service.UserService
	Images storage.ImageStore

	Tokens    *auth.TokenService
	UserStore auth.UserStore
	Health    repository.DatabaseHealth
	Metrics   *metrics.Metrics

	// CORSOrigin is the allowed cross-origin value; "*" by default.
	CORSOrigin string

	// UploadsDir, when non-empty, is served read-only under /uploads/
	// (filesystem image backend).
	UploadsDir string

	Logger zerolog.Logger
}

// NewRouter assembles the HTTP API.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(deps.CORSOrigin))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.HTTPMiddleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	r.Get("/health", healthHandler(deps.Health))

	if deps.UploadsDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadsDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	authHandler := NewAuthHandler(deps.Auth, deps.Logger)
	postHandler := NewPostHandler(deps.Posts, deps.Export, deps.Logger)
	userHandler := NewUserHandler(deps.Users, deps.Logger)
	uploadHandler := NewUploadHandler(deps.Images, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/replace-admin", authHandler.ReplaceAdmin)
			r.Post("/signin", authHandler.SignIn)
		})

		// Uploads take no token; the upload only becomes reachable content
		// once an authenticated post references the returned URL.
		r.Post("/uploads", uploadHandler.Upload)

		// Everything below runs behind the access control pipeline.
		r.Group(func(r chi.Router) {
			var observer auth.FailureObserver
			if deps.Metrics != nil {
				observer = deps.Metrics
			}
			r.Use(auth.Middleware(deps.Tokens, deps.UserStore, observer, deps.Logger))

			r.Route("/posts", func(r chi.Router) {
				r.Post("/", postHandler.Create)
				r.With(auth.RequireAdmin).Get("/", postHandler.List)
				r.Get("/my", postHandler.ListMine)
				r.Get("/restricted", postHandler.ListRestricted)
				r.Get("/export", postHandler.Export)
				r.With(auth.RequireAdmin).Get("/stats/restricted", postHandler.RestrictedStats)
				r.Get("/{id}", postHandler.Get)
				r.Put("/{id}", postHandler.Update)
				r.Delete("/{id}", postHandler.Delete)
			})

			r.Route("/user", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Put("/block/{id}", userHandler.Block)
				r.Put("/unblock/{id}", userHandler.Unblock)
				r.Get("/all", userHandler.List)
			})
		})
	})

	return r
}

// healthHandler reports store connectivity.
func healthHandler(health repository.DatabaseHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// corsMiddleware answers preflight requests and stamps the allowed origin.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
