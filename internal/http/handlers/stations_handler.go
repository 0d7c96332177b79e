package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cargadero/internal/models"
	"cargadero/internal/repository"
)

// StationsHandler serves station reference-data CRUD.
type StationsHandler struct {
	stations *repository.StationRepository
	logger   *zap.Logger
}

func NewStationsHandler(stations *repository.StationRepository, logger *zap.Logger) *StationsHandler {
	return &StationsHandler{stations: stations, logger: logger}
}

// List handles GET /stations.
func (h *StationsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.stations.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

type upsertStationRequest struct {
	ID       string  `json:"id"`
	Name     *string `json:"name"`
	Active   *bool   `json:"active"`
	DeviceIP *string `json:"device_ip"`
}

// Upsert handles POST /stations.
func (h *StationsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertStationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		writeError(w, http.StatusUnprocessableEntity, "id is required")
		return
	}
	station := &models.Station{ID: req.ID, Name: req.Name, Active: true, DeviceIP: req.DeviceIP}
	if req.Active != nil {
		station.Active = *req.Active
	}
	if err := h.stations.Upsert(r.Context(), station); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, station)
}

// Get handles GET /stations/{id}.
func (h *StationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	station, err := h.stations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, station)
}

// SetActive handles PATCH /stations/{id}/active.
func (h *StationsHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Active == nil {
		writeError(w, http.StatusUnprocessableEntity, "active is required")
		return
	}
	station, err := h.stations.SetActive(r.Context(), r.PathValue("id"), *req.Active)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, station)
}
