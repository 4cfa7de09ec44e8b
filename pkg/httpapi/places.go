package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cast"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/osm"
)

var errSearchDisabled = errors.New("destination search is disabled")

// PlaceSearcher resolves free-form destination queries.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int, near *geo.Coordinate) ([]osm.Place, error)
	Resolve(ctx context.Context, query string, near *geo.Coordinate) (osm.Place, error)
}

// PlacesResponse is the body of GET /api/places
type PlacesResponse struct {
	Query  string      `json:"query"`
	Places []osm.Place `json:"places"`
	Count  int         `json:"count"`
}

// SearchPlaces handles GET /api/places?q=&lat=&lon=&limit=
func (h *Handler) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		writeFailure(w, errSearchDisabled)
		return
	}

	params := r.URL.Query()
	query := osm.SanitizeQuery(params.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required", nil)
		return
	}

	limit := osm.DefaultLimit
	if raw := params.Get("limit"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n < 1 || n > osm.MaxLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", osm.MaxLimit), map[string]any{"limit": raw})
			return
		}
		limit = n
	}

	var near *geo.Coordinate
	if params.Has("lat") || params.Has("lon") {
		lat, latErr := cast.ToFloat64E(params.Get("lat"))
		lon, lonErr := cast.ToFloat64E(params.Get("lon"))
		c := geo.Coordinate{Latitude: lat, Longitude: lon}
		if latErr != nil || lonErr != nil || params.Get("lat") == "" || params.Get("lon") == "" || !c.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid coordinates", map[string]any{
				"lat": params.Get("lat"),
				"lon": params.Get("lon"),
			})
			return
		}
		near = &c
	}

	places, err := h.places.Search(r.Context(), query, limit, near)
	if err != nil {
		h.logger.Error("place search failed", "query", query, "error", err)
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlacesResponse{Query: query, Places: places, Count: len(places)})
}

func (h *Handler) resolve(ctx context.Context, query string, origin geo.Coordinate) (osm.Place, error) {
	if h.places == nil {
		return osm.Place{}, errSearchDisabled
	}
	return h.places.Resolve(ctx, query, &origin)
}
