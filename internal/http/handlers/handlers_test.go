package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cargadero/internal/clients"
	"cargadero/internal/repository"
	"cargadero/internal/service"
)

func TestWriteServiceError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid pin", service.ErrInvalidCredential, http.StatusUnauthorized},
		{"disabled credential", service.ErrCredentialDisabled, http.StatusForbidden},
		{"locked credential", service.ErrCredentialLocked, http.StatusForbidden},
		{"station unavailable", service.ErrStationUnavailable, http.StatusNotFound},
		{"dispatch not found", repository.ErrDispatchNotFound, http.StatusNotFound},
		{"company not found", repository.ErrCompanyNotFound, http.StatusNotFound},
		{"invalid dispatch", service.ErrInvalidDispatch, http.StatusUnprocessableEntity},
		{"invalid output", service.ErrInvalidOutput, http.StatusUnprocessableEntity},
		{"photo too small", service.ErrPhotoTooSmall, http.StatusBadRequest},
		{"unsupported image", service.ErrUnsupportedImage, http.StatusUnsupportedMediaType},
		{"storage upload", clients.ErrStorageUpload, http.StatusBadGateway},
		{"storage unconfigured", clients.ErrStorageUnconfigured, http.StatusServiceUnavailable},
		{"plc unconfigured", clients.ErrPLCUnconfigured, http.StatusServiceUnavailable},
		{"unknown error", assertAnError{}, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tc.err)
			assert.Equal(t, tc.expected, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

type assertAnError struct{}

func (assertAnError) Error() string { return "boom" }

func TestIngressValidation(t *testing.T) {
	h := NewAccessHandler(nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Ingress(rec, httptest.NewRequest(http.MethodPost, "/access/ingreso", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Ingress(rec, httptest.NewRequest(http.MethodPost, "/access/ingreso", strings.NewReader(`{"station_id":"","raw_pin":""}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	h.Ingress(rec, httptest.NewRequest(http.MethodPost, "/access/ingreso", strings.NewReader(`{"station_id":"  ","raw_pin":"1234"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHikWebhook_UnparseableBody(t *testing.T) {
	h := NewHikHandler(nil, "PALACIO", zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/access/hik/webhook", strings.NewReader("not xml and not json {{{"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTelemetryValidation(t *testing.T) {
	h := NewDispatchHandler(nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Telemetry(rec, httptest.NewRequest(http.MethodPost, "/dispatch/telemetry", strings.NewReader(`{"liters_total": 10}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSetLitersValidation(t *testing.T) {
	h := NewDispatchHandler(nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/dispatch/abc/liters", strings.NewReader(`{}`))
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.SetLiters(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/dispatch/9/liters", strings.NewReader(`{}`))
	req.SetPathValue("id", "9")
	rec = httptest.NewRecorder()
	h.SetLiters(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDigitalInputValidation(t *testing.T) {
	h := NewPLCHandler(nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.DigitalInput(rec, httptest.NewRequest(http.MethodPost, "/plc/di", strings.NewReader(`{"station_id":"PALACIO","di":"DI1"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "missing state")
}

func TestSetOutputPathValidation(t *testing.T) {
	h := NewPLCHandler(nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/plc/do/x/1", nil)
	req.SetPathValue("ch", "x")
	req.SetPathValue("status", "1")
	rec := httptest.NewRecorder()
	h.SetOutput(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseKPIFilters(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/kpi/summary?from=2026-01-01&to=2026-08-27T23:59:59Z&station_id=PALACIO&company_id=4", nil)

	f, err := parseKPIFilters(req)
	require.NoError(t, err)

	require.NotNil(t, f.From)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), f.From.UTC())
	require.NotNil(t, f.To)
	assert.Equal(t, 2026, f.To.Year())
	assert.Equal(t, "PALACIO", f.StationID)
	require.NotNil(t, f.CompanyID)
	assert.Equal(t, int64(4), *f.CompanyID)
}

func TestParseKPIFilters_Empty(t *testing.T) {
	f, err := parseKPIFilters(httptest.NewRequest(http.MethodGet, "/kpi/summary", nil))
	require.NoError(t, err)
	assert.Nil(t, f.From)
	assert.Nil(t, f.To)
	assert.Empty(t, f.StationID)
	assert.Nil(t, f.CompanyID)
}

func TestParseKPIFilters_BadDate(t *testing.T) {
	_, err := parseKPIFilters(httptest.NewRequest(http.MethodGet, "/kpi/summary?from=yesterday", nil))
	assert.Error(t, err)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?limit=50&bad=zz", nil)
	assert.Equal(t, 50, queryInt(req, "limit", 20))
	assert.Equal(t, 20, queryInt(req, "bad", 20))
	assert.Equal(t, 20, queryInt(req, "missing", 20))
}
