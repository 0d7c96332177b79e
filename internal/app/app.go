package app

import (
	"context"
	"database/sql"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "cargadero/libs/db"
	libredis "cargadero/libs/redis"

	"cargadero/internal/clients"
	"cargadero/internal/config"
	httpserver "cargadero/internal/http"
	"cargadero/internal/http/handlers"
	"cargadero/internal/http/middleware"
	"cargadero/internal/pin"
	"cargadero/internal/redisstore"
	"cargadero/internal/repository"
	"cargadero/internal/service"
	"cargadero/internal/sync"
)

// App wires service dependencies.
type App struct {
	server      *httpserver.Server
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	// Redis is optional. Without it active-dispatch lookups fall back to the
	// database.
	var redisClient *redis.Client
	var activeStore service.ActiveStore
	if cfg.Redis.Addr != "" {
		redisClient, err = libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
			redisClient = nil
		} else {
			activeStore = redisstore.NewStore(redisClient, cfg.ActiveDispatchTTL())
		}
	}

	credentialRepo := repository.NewCredentialRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)
	stationRepo := repository.NewStationRepository(sqlDB)
	companyRepo := repository.NewCompanyRepository(sqlDB)
	dispatchRepo := repository.NewDispatchRepository(sqlDB)
	telemetryRepo := repository.NewTelemetryRepository(sqlDB)
	eventRepo := repository.NewEventRepository(sqlDB)
	photoRepo := repository.NewPhotoRepository(sqlDB)
	kpiRepo := repository.NewKPIRepository(sqlDB)

	plcClient := clients.NewPLCClient(cfg.PLC.BaseURL, cfg.PLCTimeout(), logger)
	automationClient := clients.NewAutomationClient(cfg.Automation.DispatchWebhook, cfg.AutomationTimeout(), logger)
	storageClient := clients.NewStorageClient(cfg.Storage.BaseURL, cfg.Storage.ServiceRole, cfg.Storage.Bucket)
	var camera service.SnapshotSource
	if cfg.Camera.SnapshotURL != "" {
		camera = clients.NewCameraClient(cfg.Camera.SnapshotURL, cfg.Camera.User, cfg.Camera.Password)
	}

	syncer, err := sync.New(cfg, logger)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	accessService := service.NewAccessService(
		sqlDB,
		pin.NewSHA256Hasher(),
		credentialRepo,
		sessionRepo,
		stationRepo,
		dispatchRepo,
		activeStore,
		service.AccessPolicy{
			DefaultMaxLiters: cfg.Access.DefaultMaxLiters,
			MaxAttempts:      cfg.Access.MaxAttempts,
			LockoutDuration:  cfg.LockoutDuration(),
		},
		logger,
	)
	dispatchService := service.NewDispatchService(sqlDB, dispatchRepo, telemetryRepo, companyRepo, activeStore, logger)
	eventService := service.NewEventService(
		eventRepo,
		companyRepo,
		dispatchRepo,
		activeStore,
		automationClient,
		cfg.Access.DefaultMaxLiters,
		cfg.AutomationTimeout(),
		logger,
	)
	plcService := service.NewPLCService(sqlDB, dispatchRepo, eventRepo, activeStore, plcClient, logger)
	photoService := service.NewPhotoService(sqlDB, dispatchRepo, photoRepo, storageClient, camera, cfg.Storage.Prefix, logger)
	companyService := service.NewCompanyService(companyRepo, syncer, cfg.Sync.DoorNo, logger)

	healthHandler := handlers.NewHealthHandler(sqlDB)
	accessHandler := handlers.NewAccessHandler(accessService, logger)
	hikHandler := handlers.NewHikHandler(eventService, cfg.Access.DefaultStationID, logger)
	dispatchHandler := handlers.NewDispatchHandler(dispatchService, photoService, logger)
	photosHandler := handlers.NewPhotosHandler(photoService, logger)
	plcHandler := handlers.NewPLCHandler(plcService, logger)
	kpiHandler := handlers.NewKPIHandler(kpiRepo, logger)
	stationsHandler := handlers.NewStationsHandler(stationRepo, logger)
	companyHandler := handlers.NewCompanyHandler(companyService, logger)

	routes := httpserver.Routes{
		Banner:   healthHandler.Banner,
		Health:   healthHandler.Health,
		HealthDB: healthHandler.HealthDB,

		AccessIngress: accessHandler.Ingress,
		HikWebhook:    hikHandler.Webhook,
		HikTest:       hikHandler.Test,

		DispatchOpen:      dispatchHandler.Open,
		DispatchStart:     dispatchHandler.Start,
		DispatchTelemetry: dispatchHandler.Telemetry,
		DispatchStop:      dispatchHandler.Stop,
		DispatchLiters:    dispatchHandler.SetLiters,
		DispatchRecent:    dispatchHandler.Recent,
		DispatchPhoto:     dispatchHandler.AttachPhoto,

		PhotoUpload:      photosHandler.Upload,
		PhotoFetchCamera: photosHandler.FetchCamera,

		PLCDigitalInput: plcHandler.DigitalInput,
		PLCSetOutput:    plcHandler.SetOutput,

		KPISummary:   kpiHandler.Summary,
		KPIByCompany: kpiHandler.ByCompany,
		KPIByStation: kpiHandler.ByStation,

		StationList:      stationsHandler.List,
		StationUpsert:    stationsHandler.Upsert,
		StationGet:       stationsHandler.Get,
		StationSetActive: stationsHandler.SetActive,

		CompanyList:       companyHandler.List,
		CompanyUpsert:     companyHandler.Upsert,
		CompanyDeactivate: companyHandler.Deactivate,
		CompanySync:       companyHandler.Sync,
		CompanyHikUsers:   companyHandler.KeypadUsers,
		CompanyHikUser:    companyHandler.KeypadUser,
	}

	kpiTTL := time.Duration(cfg.HTTP.CacheTTLSeconds) * time.Second
	var kpiCache httpserver.Middleware
	if kpiTTL > 0 {
		store := gocache.New(kpiTTL, 2*kpiTTL)
		kpiCache = middleware.ResponseCache(store, kpiTTL)
	}

	router := httpserver.NewRouter(routes, kpiCache,
		middleware.RateLimit(cfg.HTTP.RateLimitPerSec, cfg.HTTP.RateLimitBurst),
		middleware.BearerAuth(cfg.Auth.APIToken),
	)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
