// Package httpapi exposes the navigation manager as a JSON HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/NERVsystems/navtrack/pkg/navigator"
)

// NewRouter builds the API routes over manager. A nil places disables
// destination search.
func NewRouter(manager *navigator.Manager, places PlaceSearcher, logger *slog.Logger, allowedOrigins []string) http.Handler {
	h := &Handler{
		manager: manager,
		places:  places,
		logger:  logger.With("component", "http"),
		now:     time.Now,
	}
	return h.routes(allowedOrigins)
}

func (h *Handler) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", h.Health)
	r.Get("/api/places", h.SearchPlaces)

	r.Route("/api/navigations", func(r chi.Router) {
		r.Get("/", h.ListNavigations)
		r.Post("/", h.PlanNavigation)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNavigation)
			r.Delete("/", h.EndNavigation)
			r.Put("/mode", h.SetMode)
			r.Post("/start", h.StartNavigation)
			r.Post("/fixes", h.PostFix)
			r.Get("/geojson", h.GetGeoJSON)
			r.Get("/gpx", h.GetGPX)
		})
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
