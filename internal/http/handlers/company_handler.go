package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cargadero/internal/models"
	"cargadero/internal/service"
)

// CompanyHandler serves company CRUD and keypad credential feeds.
type CompanyHandler struct {
	companies *service.CompanyService
	logger    *zap.Logger
}

func NewCompanyHandler(companies *service.CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, logger: logger}
}

// List handles GET /company?active_only.
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"
	items, err := h.companies.List(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Upsert handles POST /company.
func (h *CompanyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req service.UpsertInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusUnprocessableEntity, "name and code are required")
		return
	}
	company, err := h.companies.Upsert(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// Deactivate handles POST /company/{code}/deactivate.
func (h *CompanyHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := h.companies.Deactivate(r.Context(), code); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "code": code})
}

// Sync handles POST /company/{code}/sync, an explicit keypad re-provision.
func (h *CompanyHandler) Sync(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := h.companies.Push(r.Context(), code); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "code": code})
}

// hikUser is the credential shape the keypad provisioning scripts consume.
type hikUser struct {
	EmployeeNo string  `json:"employeeNo"`
	Name       string  `json:"name"`
	Password   *string `json:"password"`
}

func toHikUser(c models.Company) hikUser {
	return hikUser{EmployeeNo: c.Code, Name: c.Name, Password: c.Pin}
}

// KeypadUsers handles GET /company/hik-users: every active company with a
// PIN, shaped as terminal credentials.
func (h *CompanyHandler) KeypadUsers(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.KeypadUsers(r.Context(), queryInt(r, "limit", 2000))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items := make([]hikUser, 0, len(companies))
	for _, c := range companies {
		items = append(items, toHikUser(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "count": len(items), "items": items})
}

// KeypadUser handles GET /company/{code}/hik-user.
func (h *CompanyHandler) KeypadUser(w http.ResponseWriter, r *http.Request) {
	company, err := h.companies.KeypadUser(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "item": toHikUser(*company)})
}
