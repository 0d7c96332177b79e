package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/service"
)

// maxPhotoUpload caps evidence image uploads.
const maxPhotoUpload = 16 << 20

// DispatchHandler serves the dispatch lifecycle endpoints.
type DispatchHandler struct {
	dispatches *service.DispatchService
	photos     *service.PhotoService
	logger     *zap.Logger
}

func NewDispatchHandler(dispatches *service.DispatchService, photos *service.PhotoService, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{dispatches: dispatches, photos: photos, logger: logger}
}

type openDispatchRequest struct {
	StationID        string  `json:"station_id"`
	PinUserID        *int64  `json:"pin_user_id"`
	CompanyID        *int64  `json:"company_id"`
	PinSessionID     *int64  `json:"pin_session_id"`
	AuthorizedLiters float64 `json:"authorized_liters"`
	Source           string  `json:"source"`
	Note             *string `json:"note"`
	PhotoPath        *string `json:"photo_path"`
}

// Open handles POST /dispatch/open.
func (h *DispatchHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openDispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	id, err := h.dispatches.Open(r.Context(), service.OpenInput{
		StationID:        strings.TrimSpace(req.StationID),
		PinUserID:        req.PinUserID,
		CompanyID:        req.CompanyID,
		PinSessionID:     req.PinSessionID,
		AuthorizedLiters: req.AuthorizedLiters,
		Source:           req.Source,
		PhotoPath:        req.PhotoPath,
		Note:             req.Note,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "dispatch_id": id})
}

// Start handles POST /dispatch/start, a company-attributed open. JSON bodies
// may carry an already-hosted photo URL; multipart bodies carry the image
// itself, which is stored before the dispatch row is created.
func (h *DispatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(ct, "multipart/form-data") {
		h.startMultipart(w, r)
		return
	}

	var req struct {
		StationID   string  `json:"station_id"`
		CompanyCode string  `json:"company_code"`
		PhotoPath   *string `json:"photo_path"`
		Note        *string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	note := req.Note
	if note == nil {
		s := "despacho iniciado manual"
		note = &s
	}
	result, err := h.dispatches.StartForCompany(r.Context(), strings.TrimSpace(req.StationID), strings.TrimSpace(req.CompanyCode), req.PhotoPath, note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"id":           result.DispatchID,
		"ts":           result.StartedAt.Format(time.RFC3339),
		"station_id":   result.StationID,
		"company_code": result.CompanyCode,
		"photo_path":   result.PhotoPath,
	})
}

func (h *DispatchHandler) startMultipart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	stationID := strings.TrimSpace(r.FormValue("station_id"))
	companyCode := strings.TrimSpace(r.FormValue("company_code"))
	if stationID == "" || companyCode == "" {
		writeError(w, http.StatusUnprocessableEntity, "station_id and company_code are required")
		return
	}
	note := strings.TrimSpace(r.FormValue("note"))
	if note == "" {
		note = "despacho iniciado por trigger"
	}
	suffix := strings.TrimSpace(r.FormValue("suffix"))

	data, contentType, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}

	photoURL, err := h.photos.UploadStartSnapshot(r.Context(), stationID, suffix, data, contentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.dispatches.StartForCompany(r.Context(), stationID, companyCode, &photoURL, &note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"id":           result.DispatchID,
		"ts":           result.StartedAt.Format(time.RFC3339),
		"station_id":   result.StationID,
		"company_code": result.CompanyCode,
		"photo_path":   photoURL,
	})
}

type telemetryRequest struct {
	StationID   string                 `json:"station_id"`
	DispatchID  *int64                 `json:"dispatch_id"`
	LitersTotal *float64               `json:"liters_total"`
	FlowLMin    *float64               `json:"flow_l_min"`
	Pulses      *int64                 `json:"pulses"`
	Meta        map[string]interface{} `json:"meta"`
}

// Telemetry handles POST /dispatch/telemetry.
func (h *DispatchHandler) Telemetry(w http.ResponseWriter, r *http.Request) {
	var req telemetryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.StationID) == "" {
		writeError(w, http.StatusUnprocessableEntity, "station_id is required")
		return
	}
	id, err := h.dispatches.RecordTelemetry(r.Context(), service.TelemetryInput{
		StationID:   req.StationID,
		DispatchID:  req.DispatchID,
		LitersTotal: req.LitersTotal,
		FlowLMin:    req.FlowLMin,
		Pulses:      req.Pulses,
		Meta:        marshalMeta(req.Meta),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "telemetry_id": id})
}

// Stop handles POST /dispatch/{id}/stop. Idempotent.
func (h *DispatchHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dispatch id")
		return
	}
	if err := h.dispatches.Close(r.Context(), id, time.Now()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id})
}

// SetLiters handles POST /dispatch/{id}/liters.
func (h *DispatchHandler) SetLiters(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dispatch id")
		return
	}
	var req struct {
		Liters *float64 `json:"liters"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Liters == nil {
		writeError(w, http.StatusUnprocessableEntity, "liters is required")
		return
	}
	if err := h.dispatches.SetLiters(r.Context(), id, *req.Liters); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id, "liters": *req.Liters})
}

// Recent handles GET /dispatch/recent?station_id&limit.
func (h *DispatchHandler) Recent(w http.ResponseWriter, r *http.Request) {
	stationID := strings.TrimSpace(r.URL.Query().Get("station_id"))
	if stationID == "" {
		writeError(w, http.StatusUnprocessableEntity, "station_id is required")
		return
	}
	items, err := h.dispatches.Recent(r.Context(), stationID, queryInt(r, "limit", 20))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "items": items})
}

// AttachPhoto handles POST /dispatch/{id}/photo: the clearer truck photo,
// replacing any provisional controller snapshot on the dispatch.
func (h *DispatchHandler) AttachPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dispatch id")
		return
	}
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	data, contentType, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}

	result, err := h.photos.AttachTruckPhoto(r.Context(), id, formPtr(r, "camera_id"), r.FormValue("meta"), data, contentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func readUpload(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxPhotoUpload))
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}

func formPtr(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return nil
	}
	return &v
}
