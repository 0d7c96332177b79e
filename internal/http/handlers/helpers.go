package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cargadero/internal/clients"
	"cargadero/internal/repository"
	"cargadero/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain sentinels onto HTTP statuses so handlers
// stay thin.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, "invalid pin")
	case errors.Is(err, service.ErrCredentialDisabled),
		errors.Is(err, service.ErrCredentialLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrStationUnavailable):
		writeError(w, http.StatusNotFound, "station missing or inactive")
	case errors.Is(err, repository.ErrDispatchNotFound):
		writeError(w, http.StatusNotFound, "dispatch not found")
	case errors.Is(err, repository.ErrCompanyNotFound):
		writeError(w, http.StatusNotFound, "company not found or inactive")
	case errors.Is(err, repository.ErrStationNotFound):
		writeError(w, http.StatusNotFound, "station not found")
	case errors.Is(err, service.ErrInvalidDispatch),
		errors.Is(err, service.ErrInvalidOutput),
		errors.Is(err, service.ErrMissingPin):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrPhotoTooSmall):
		writeError(w, http.StatusBadRequest, "file empty or too small")
	case errors.Is(err, service.ErrUnsupportedImage):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, clients.ErrStorageUpload):
		writeError(w, http.StatusBadGateway, "storage upload failed")
	case errors.Is(err, clients.ErrStorageUnconfigured),
		errors.Is(err, clients.ErrPLCUnconfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func marshalMeta(meta map[string]interface{}) []byte {
	if len(meta) == 0 {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return raw
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
