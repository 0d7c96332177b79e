package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/service"
)

// AccessHandler serves the keypad ingress endpoint.
type AccessHandler struct {
	access *service.AccessService
	logger *zap.Logger
}

func NewAccessHandler(access *service.AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{access: access, logger: logger}
}

type ingressRequest struct {
	StationID string `json:"station_id"`
	RawPin    string `json:"raw_pin"`
	Ts        string `json:"ts"`
}

// Ingress handles POST /access/ingreso.
func (h *AccessHandler) Ingress(w http.ResponseWriter, r *http.Request) {
	var req ingressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.StationID = strings.TrimSpace(req.StationID)
	req.RawPin = strings.TrimSpace(req.RawPin)
	if req.StationID == "" || req.RawPin == "" {
		writeError(w, http.StatusUnprocessableEntity, "station_id and raw_pin are required")
		return
	}

	at := time.Now()
	if req.Ts != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Ts); err == nil {
			at = parsed
		}
	}

	result, err := h.access.Ingress(r.Context(), req.StationID, req.RawPin, at)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"dispatch_id":    result.DispatchID,
		"pin_user_id":    result.PinUserID,
		"pin_session_id": result.PinSessionID,
	})
}
