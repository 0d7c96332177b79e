package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	Banner   http.HandlerFunc
	Health   http.HandlerFunc
	HealthDB http.HandlerFunc

	AccessIngress http.HandlerFunc
	HikWebhook    http.HandlerFunc
	HikTest       http.HandlerFunc

	DispatchOpen      http.HandlerFunc
	DispatchStart     http.HandlerFunc
	DispatchTelemetry http.HandlerFunc
	DispatchStop      http.HandlerFunc
	DispatchLiters    http.HandlerFunc
	DispatchRecent    http.HandlerFunc
	DispatchPhoto     http.HandlerFunc

	PhotoUpload      http.HandlerFunc
	PhotoFetchCamera http.HandlerFunc

	PLCDigitalInput http.HandlerFunc
	PLCSetOutput    http.HandlerFunc

	KPISummary   http.HandlerFunc
	KPIByCompany http.HandlerFunc
	KPIByStation http.HandlerFunc

	StationList      http.HandlerFunc
	StationUpsert    http.HandlerFunc
	StationGet       http.HandlerFunc
	StationSetActive http.HandlerFunc

	CompanyList       http.HandlerFunc
	CompanyUpsert     http.HandlerFunc
	CompanyDeactivate http.HandlerFunc
	CompanySync       http.HandlerFunc
	CompanyHikUsers   http.HandlerFunc
	CompanyHikUser    http.HandlerFunc
}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// NewRouter registers endpoints. kpiCache, when non-nil, wraps only the
// aggregation routes; outer middleware wraps the whole mux outermost-first.
func NewRouter(routes Routes, kpiCache Middleware, outer ...Middleware) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		if h != nil {
			mux.Handle(pattern, h)
		}
	}
	handleCached := func(pattern string, h http.HandlerFunc) {
		if h == nil {
			return
		}
		if kpiCache != nil {
			mux.Handle(pattern, kpiCache(h))
			return
		}
		mux.Handle(pattern, h)
	}

	handle("GET /{$}", routes.Banner)
	handle("GET /health", routes.Health)
	handle("GET /health/db", routes.HealthDB)

	handle("POST /access/ingreso", routes.AccessIngress)
	handle("POST /access/hik/webhook", routes.HikWebhook)
	handle("POST /access/hik/test", routes.HikTest)

	handle("POST /dispatch/open", routes.DispatchOpen)
	handle("POST /dispatch/start", routes.DispatchStart)
	handle("POST /dispatch/telemetry", routes.DispatchTelemetry)
	handle("POST /dispatch/{id}/stop", routes.DispatchStop)
	handle("POST /dispatch/{id}/liters", routes.DispatchLiters)
	handle("POST /dispatch/{id}/photo", routes.DispatchPhoto)
	handle("GET /dispatch/recent", routes.DispatchRecent)

	handle("POST /fotos/media/upload", routes.PhotoUpload)
	handle("POST /fotos/media/fetch-camera", routes.PhotoFetchCamera)

	handle("POST /plc/di", routes.PLCDigitalInput)
	handle("POST /plc/do/{ch}/{status}", routes.PLCSetOutput)

	handleCached("GET /kpi/summary", routes.KPISummary)
	handleCached("GET /kpi/by_company", routes.KPIByCompany)
	handleCached("GET /kpi/by_station", routes.KPIByStation)

	handle("GET /stations", routes.StationList)
	handle("POST /stations", routes.StationUpsert)
	handle("GET /stations/{id}", routes.StationGet)
	handle("PATCH /stations/{id}/active", routes.StationSetActive)

	handle("GET /company", routes.CompanyList)
	handle("POST /company", routes.CompanyUpsert)
	handle("POST /company/{code}/deactivate", routes.CompanyDeactivate)
	handle("POST /company/{code}/sync", routes.CompanySync)
	handle("GET /company/hik-users", routes.CompanyHikUsers)
	handle("GET /company/{code}/hik-user", routes.CompanyHikUser)

	var handler http.Handler = mux
	for i := len(outer) - 1; i >= 0; i-- {
		handler = outer[i](handler)
	}
	return handler
}
