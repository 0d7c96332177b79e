package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/repository"
)

// KPIHandler serves the read-only aggregation endpoints.
type KPIHandler struct {
	kpi    *repository.KPIRepository
	logger *zap.Logger
}

func NewKPIHandler(kpi *repository.KPIRepository, logger *zap.Logger) *KPIHandler {
	return &KPIHandler{kpi: kpi, logger: logger}
}

// Summary handles GET /kpi/summary.
func (h *KPIHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filters, err := parseKPIFilters(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	summary, err := h.kpi.Summary(r.Context(), filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ByCompany handles GET /kpi/by_company.
func (h *KPIHandler) ByCompany(w http.ResponseWriter, r *http.Request) {
	filters, err := parseKPIFilters(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rows, err := h.kpi.ByCompany(r.Context(), filters, queryInt(r, "top", 10))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

// ByStation handles GET /kpi/by_station.
func (h *KPIHandler) ByStation(w http.ResponseWriter, r *http.Request) {
	filters, err := parseKPIFilters(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rows, err := h.kpi.ByStation(r.Context(), filters, queryInt(r, "top", 10))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

func parseKPIFilters(r *http.Request) (repository.KPIFilters, error) {
	q := r.URL.Query()
	var f repository.KPIFilters

	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		ts, err := parseTimeParam(raw)
		if err != nil {
			return f, err
		}
		*dst = &ts
	}

	f.StationID = strings.TrimSpace(q.Get("station_id"))
	if raw := strings.TrimSpace(q.Get("company_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, err
		}
		f.CompanyID = &id
	}
	return f, nil
}

// parseTimeParam accepts RFC3339 or a bare date.
func parseTimeParam(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
