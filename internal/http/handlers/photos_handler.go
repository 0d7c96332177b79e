package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cargadero/internal/service"
)

// PhotosHandler serves the standalone photo upload endpoints.
type PhotosHandler struct {
	photos *service.PhotoService
	logger *zap.Logger
}

func NewPhotosHandler(photos *service.PhotoService, logger *zap.Logger) *PhotosHandler {
	return &PhotosHandler{photos: photos, logger: logger}
}

// Upload handles POST /fotos/media/upload (multipart: file, dispatch_id,
// camera_id?, meta?).
func (h *PhotosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	dispatchID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("dispatch_id")), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "dispatch_id is required")
		return
	}
	data, contentType, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}

	result, err := h.photos.Upload(r.Context(), dispatchID, formPtr(r, "camera_id"), r.FormValue("meta"), data, contentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// FetchCamera handles POST /fotos/media/fetch-camera: pulls a frame from the
// configured station camera instead of receiving one.
func (h *PhotosHandler) FetchCamera(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DispatchID *int64                 `json:"dispatch_id"`
		CameraID   *string                `json:"camera_id"`
		Meta       map[string]interface{} `json:"meta"`
	}
	if err := decodeJSON(r, &req); err != nil || req.DispatchID == nil {
		writeError(w, http.StatusUnprocessableEntity, "dispatch_id is required")
		return
	}

	result, err := h.photos.FetchFromCamera(r.Context(), *req.DispatchID, req.CameraID, string(marshalMeta(req.Meta)))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
