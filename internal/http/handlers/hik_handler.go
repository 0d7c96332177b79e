package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cargadero/internal/hik"
	"cargadero/internal/service"
)

// maxWebhookBody caps controller payloads. Event bodies are a few KB; the
// cap guards against a stuck multipart stream.
const maxWebhookBody = 4 << 20

// HikHandler ingests door controller event notifications.
type HikHandler struct {
	events           *service.EventService
	defaultStationID string
	logger           *zap.Logger
}

func NewHikHandler(events *service.EventService, defaultStationID string, logger *zap.Logger) *HikHandler {
	return &HikHandler{events: events, defaultStationID: defaultStationID, logger: logger}
}

// Webhook handles POST /access/hik/webhook. The controller posts XML or
// JSON, bare or wrapped in multipart.
func (h *HikHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := readEventBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ev, err := hik.Normalize(body, contentType, h.defaultStationID)
	if err != nil {
		if errors.Is(err, hik.ErrUnparseable) {
			h.logger.Warn("unparseable controller event", zap.Int("bytes", len(body)))
			writeError(w, http.StatusBadRequest, "cannot parse payload")
			return
		}
		writeServiceError(w, err)
		return
	}

	result, err := h.events.Reconcile(r.Context(), ev)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"event_id":    result.EventID,
		"dispatch_id": result.DispatchID,
	})
}

// Test handles POST /access/hik/test with a pre-normalized flat JSON map.
// Feeds the same reconciliation pipeline as the webhook, for bench testing
// without a controller.
func (h *HikHandler) Test(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if err := decodeJSON(r, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	ev := hik.FromFlatMap(data, h.defaultStationID)
	result, err := h.events.Reconcile(r.Context(), ev)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"event_id":    result.EventID,
		"dispatch_id": result.DispatchID,
	})
}

// readEventBody extracts the event document from the request. Hikvision
// firmwares post either a bare body or multipart/form-data whose first
// json/xml part carries the event.
func readEventBody(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "multipart/") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		return body, contentType, err
	}

	if err := r.ParseMultipartForm(maxWebhookBody); err != nil {
		return nil, contentType, err
	}
	// Prefer well-known field names, fall back to the first non-image part.
	for _, name := range []string{"event_log", "AccessControllerEvent", "json", "xml"} {
		if vals, ok := r.MultipartForm.Value[name]; ok && len(vals) > 0 {
			return []byte(vals[0]), partContentType(vals[0]), nil
		}
	}
	for _, vals := range r.MultipartForm.Value {
		if len(vals) > 0 {
			return []byte(vals[0]), partContentType(vals[0]), nil
		}
	}
	return nil, contentType, errors.New("empty multipart body")
}

func partContentType(body string) string {
	if json.Valid([]byte(body)) {
		return "application/json"
	}
	return "application/xml"
}
