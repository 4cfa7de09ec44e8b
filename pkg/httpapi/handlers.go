package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osm"
	"github.com/NERVsystems/navtrack/pkg/render"
	"github.com/NERVsystems/navtrack/pkg/version"
)

// Handler serves navigation requests
type Handler struct {
	manager *navigator.Manager
	places  PlaceSearcher
	logger  *slog.Logger
	now     func() time.Time
}

// PlanRequest is the body of POST /api/navigations. A non-empty
// DestinationQuery replaces Destination with the best matching place.
type PlanRequest struct {
	Origin           geo.Coordinate `json:"origin"`
	Destination      geo.Coordinate `json:"destination"`
	DestinationQuery string         `json:"destination_query,omitempty"`
	Mode             string         `json:"mode"`
}

// PlanResponse is the body returned by POST /api/navigations
type PlanResponse struct {
	navigator.Snapshot
	Place *osm.Place `json:"place,omitempty"`
}

// ModeRequest is the body of PUT /api/navigations/{id}/mode
type ModeRequest struct {
	Mode string `json:"mode"`
}

// StartRequest is the body of POST /api/navigations/{id}/start
type StartRequest struct {
	RouteIndex int `json:"route_index"`
}

// FixRequest is the body of POST /api/navigations/{id}/fixes. A zero
// timestamp means now; a missing course is reported as unknown.
type FixRequest struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Course    *float64  `json:"course,omitempty"`
}

// ListResponse is the body of GET /api/navigations
type ListResponse struct {
	Navigations []navigator.Snapshot `json:"navigations"`
	Count       int                  `json:"count"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"build":       version.Info(),
		"navigations": len(h.manager.List()),
		"timestamp":   h.now().UTC(),
	})
}

// ListNavigations handles GET /api/navigations
func (h *Handler) ListNavigations(w http.ResponseWriter, r *http.Request) {
	navs := h.manager.List()
	writeJSON(w, http.StatusOK, ListResponse{Navigations: navs, Count: len(navs)})
}

// PlanNavigation handles POST /api/navigations
func (h *Handler) PlanNavigation(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !decode(w, r, &req) {
		return
	}

	var place *osm.Place
	if query := osm.SanitizeQuery(req.DestinationQuery); query != "" && req.Origin.Valid() {
		found, err := h.resolve(r.Context(), query, req.Origin)
		if err != nil {
			h.logger.Warn("failed to resolve destination", "query", query, "error", err)
			writeFailure(w, err)
			return
		}
		place, req.Destination = &found, found.Location
	}
	if !req.Origin.Valid() || !req.Destination.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid coordinates", map[string]any{
			"origin":      req.Origin.String(),
			"destination": req.Destination.String(),
		})
		return
	}
	if req.Mode == "" {
		req.Mode = string(nav.ModeDriving)
	}
	mode, err := nav.ParseTransportMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	snap, err := h.manager.Plan(r.Context(), req.Origin, req.Destination, mode)
	if err != nil {
		h.logger.Error("failed to plan navigation", "error", err)
		writeFailure(w, err)
		return
	}
	w.Header().Set("Location", "/api/navigations/"+snap.ID)
	writeJSON(w, http.StatusCreated, PlanResponse{Snapshot: snap, Place: place})
}

// GetNavigation handles GET /api/navigations/{id}
func (h *Handler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SetMode handles PUT /api/navigations/{id}/mode
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decode(w, r, &req) {
		return
	}
	mode, err := nav.ParseTransportMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	snap, err := h.manager.SetMode(r.Context(), chi.URLParam(r, "id"), mode)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// StartNavigation handles POST /api/navigations/{id}/start
func (h *Handler) StartNavigation(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	snap, err := h.manager.Start(chi.URLParam(r, "id"), req.RouteIndex)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// PostFix handles POST /api/navigations/{id}/fixes
func (h *Handler) PostFix(w http.ResponseWriter, r *http.Request) {
	var req FixRequest
	if !decode(w, r, &req) {
		return
	}
	fix := nav.Fix{
		Coordinate: geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude},
		Timestamp:  req.Timestamp,
		Course:     -1,
	}
	if !fix.Coordinate.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid coordinates", map[string]any{
			"coordinate": fix.Coordinate.String(),
		})
		return
	}
	if req.Course != nil {
		fix.Course = *req.Course
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = h.now()
	}

	res, err := h.manager.Update(chi.URLParam(r, "id"), fix)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetGeoJSON handles GET /api/navigations/{id}/geojson
func (h *Handler) GetGeoJSON(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	data, err := render.FeatureCollection(snap).MarshalJSON()
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetGPX handles GET /api/navigations/{id}/gpx
func (h *Handler) GetGPX(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.manager.Status(id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	data, err := render.GPX(snap)
	if err != nil {
		writeError(w, http.StatusConflict, "Navigation has no route to export", map[string]any{"internal": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "navigation-"+id+".gpx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// EndNavigation handles DELETE /api/navigations/{id}
func (h *Handler) EndNavigation(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.End(chi.URLParam(r, "id")); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]any{"internal": err.Error()})
		return false
	}
	return true
}
