package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cargadero/internal/service"
)

// PLCHandler bridges the pump controller's digital I/O to the dispatch flow.
type PLCHandler struct {
	plc    *service.PLCService
	logger *zap.Logger
}

func NewPLCHandler(plc *service.PLCService, logger *zap.Logger) *PLCHandler {
	return &PLCHandler{plc: plc, logger: logger}
}

type digitalInputRequest struct {
	StationID string `json:"station_id"`
	DI        string `json:"di"`
	State     *int   `json:"state"`
}

// DigitalInput handles POST /plc/di.
func (h *PLCHandler) DigitalInput(w http.ResponseWriter, r *http.Request) {
	var req digitalInputRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.StationID = strings.TrimSpace(req.StationID)
	req.DI = strings.TrimSpace(req.DI)
	if req.StationID == "" || req.DI == "" || req.State == nil {
		writeError(w, http.StatusUnprocessableEntity, "station_id, di and state are required")
		return
	}

	if err := h.plc.OnDigitalInput(r.Context(), req.StationID, req.DI, *req.State); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SetOutput handles POST /plc/do/{ch}/{status}, the manual relay override.
func (h *PLCHandler) SetOutput(w http.ResponseWriter, r *http.Request) {
	ch, err1 := strconv.Atoi(r.PathValue("ch"))
	status, err2 := strconv.Atoi(r.PathValue("status"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "invalid channel or status")
		return
	}
	if err := h.plc.SetOutput(r.Context(), ch, status); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ch": ch, "status": status})
}
