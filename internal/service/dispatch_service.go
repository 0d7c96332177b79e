package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/models"
	"cargadero/internal/redisstore"
	"cargadero/internal/repository"
)

// ErrDispatchNotFound mirrors the repository sentinel for handler mapping.
var ErrDispatchNotFound = repository.ErrDispatchNotFound

// ErrInvalidDispatch reports malformed dispatch input.
var ErrInvalidDispatch = errors.New("dispatch: invalid input")

// ActiveStore caches the newest running dispatch per station, satisfied by
// redisstore.Store.
type ActiveStore interface {
	Save(ctx context.Context, d redisstore.ActiveDispatch) error
	Get(ctx context.Context, stationID string) (*redisstore.ActiveDispatch, error)
	Delete(ctx context.Context, stationID string) error
}

// DispatchService owns the dispatch lifecycle: open, telemetry updates,
// close. Status only moves running -> stopped.
type DispatchService struct {
	db         *sql.DB
	dispatches *repository.DispatchRepository
	telemetry  *repository.TelemetryRepository
	companies  *repository.CompanyRepository
	active     ActiveStore
	logger     *zap.Logger
}

// NewDispatchService builds the ledger. active may be nil.
func NewDispatchService(
	db *sql.DB,
	dispatches *repository.DispatchRepository,
	telemetry *repository.TelemetryRepository,
	companies *repository.CompanyRepository,
	active ActiveStore,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		db:         db,
		dispatches: dispatches,
		telemetry:  telemetry,
		companies:  companies,
		active:     active,
		logger:     logger,
	}
}

// OpenInput describes a new dispatch. Exactly one of PinUserID / CompanyID
// should be set; callers have already validated the station.
type OpenInput struct {
	StationID        string
	PinUserID        *int64
	CompanyID        *int64
	PinSessionID     *int64
	AuthorizedLiters float64
	Source           string
	PhotoPath        *string
	Note             *string
}

// Open inserts a new running dispatch. It deliberately does not check for an
// existing running dispatch at the station; concurrent dispatches are
// permitted and consumers query for the newest one.
func (s *DispatchService) Open(ctx context.Context, in OpenInput) (int64, error) {
	if in.StationID == "" {
		return 0, ErrInvalidDispatch
	}
	if in.Source == "" {
		in.Source = models.DispatchSourceManual
	}
	if in.AuthorizedLiters <= 0 {
		in.AuthorizedLiters = 10000
	}

	dispatch := &models.Dispatch{
		StationID:        in.StationID,
		PinUserID:        in.PinUserID,
		CompanyID:        in.CompanyID,
		PinSessionID:     in.PinSessionID,
		AuthorizedLiters: in.AuthorizedLiters,
		Source:           in.Source,
		PhotoPath:        in.PhotoPath,
		Note:             in.Note,
	}
	id, err := s.dispatches.Insert(ctx, dispatch)
	if err != nil {
		return 0, err
	}

	s.cacheActive(ctx, redisstore.ActiveDispatch{
		DispatchID: id,
		StationID:  in.StationID,
		CompanyID:  in.CompanyID,
		PinUserID:  in.PinUserID,
		Source:     in.Source,
	})

	return id, nil
}

// StartResult echoes the dispatch created for a company-attributed start.
type StartResult struct {
	DispatchID  int64     `json:"id"`
	StartedAt   time.Time `json:"ts"`
	StationID   string    `json:"station_id"`
	CompanyCode string    `json:"company_code"`
	PhotoPath   *string   `json:"photo_path"`
}

// StartForCompany opens a dispatch attributed to a company code. The code
// must resolve to an active company. Used by the trigger/manual start flow
// where the caller already holds a photo URL or none at all.
func (s *DispatchService) StartForCompany(ctx context.Context, stationID, companyCode string, photoPath, note *string) (*StartResult, error) {
	if stationID == "" || companyCode == "" {
		return nil, ErrInvalidDispatch
	}
	company, err := s.companies.GetActiveByCode(ctx, companyCode)
	if err != nil {
		return nil, err
	}

	dispatch := &models.Dispatch{
		StationID:        stationID,
		CompanyID:        &company.ID,
		AuthorizedLiters: 10000,
		Source:           models.DispatchSourceManual,
		PhotoPath:        photoPath,
		Note:             note,
	}
	id, err := s.dispatches.Insert(ctx, dispatch)
	if err != nil {
		return nil, err
	}

	s.cacheActive(ctx, redisstore.ActiveDispatch{
		DispatchID: id,
		StationID:  stationID,
		CompanyID:  &company.ID,
		Source:     models.DispatchSourceManual,
	})

	return &StartResult{
		DispatchID:  id,
		StartedAt:   dispatch.StartedAt,
		StationID:   stationID,
		CompanyCode: companyCode,
		PhotoPath:   photoPath,
	}, nil
}

// TelemetryInput is one flow meter report.
type TelemetryInput struct {
	StationID   string
	DispatchID  *int64
	LitersTotal *float64
	FlowLMin    *float64
	Pulses      *int64
	Meta        []byte
}

// RecordTelemetry appends an immutable telemetry row. When a cumulative
// liters counter is present, the dispatch delivered volume is set to
// max(0, value). Last write wins, there is no monotonicity check. Both
// statements share one transaction.
func (s *DispatchService) RecordTelemetry(ctx context.Context, in TelemetryInput) (int64, error) {
	if in.StationID == "" {
		return 0, ErrInvalidDispatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	row := &models.FlowTelemetry{
		StationID:   in.StationID,
		DispatchID:  in.DispatchID,
		LitersTotal: in.LitersTotal,
		FlowLMin:    in.FlowLMin,
		Pulses:      in.Pulses,
		Meta:        in.Meta,
	}
	id, err := s.telemetry.WithTx(tx).Insert(ctx, row)
	if err != nil {
		return 0, err
	}

	if in.DispatchID != nil && in.LitersTotal != nil {
		if err := s.dispatches.WithTx(tx).UpdateDeliveredLiters(ctx, *in.DispatchID, *in.LitersTotal); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Close stops a dispatch. Closing an already-closed or unknown dispatch is a
// successful no-op; ended_at is only ever set once because the update targets
// running rows.
func (s *DispatchService) Close(ctx context.Context, id int64, at time.Time) error {
	dispatch, err := s.dispatches.Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrDispatchNotFound) {
		return err
	}

	if err := s.dispatches.Close(ctx, id, at); err != nil {
		return err
	}

	if dispatch != nil {
		s.dropActive(ctx, dispatch.StationID, id)
	}
	return nil
}

// SetLiters overrides the delivered volume (manual correction).
func (s *DispatchService) SetLiters(ctx context.Context, id int64, liters float64) error {
	if liters < 0 {
		return ErrInvalidDispatch
	}
	return s.dispatches.SetLiters(ctx, id, liters)
}

// Recent returns the newest dispatches at a station with company attribution.
func (s *DispatchService) Recent(ctx context.Context, stationID string, limit int) ([]models.RecentDispatch, error) {
	return s.dispatches.Recent(ctx, stationID, limit)
}

func (s *DispatchService) cacheActive(ctx context.Context, d redisstore.ActiveDispatch) {
	if s.active == nil {
		return
	}
	if err := s.active.Save(ctx, d); err != nil {
		s.logger.Warn("failed to cache active dispatch", zap.String("station_id", d.StationID), zap.Error(err))
	}
}

// dropActive evicts the station's cache entry only when it points at the
// closed dispatch; a newer dispatch may already own the slot.
func (s *DispatchService) dropActive(ctx context.Context, stationID string, dispatchID int64) {
	if s.active == nil {
		return
	}
	cached, err := s.active.Get(ctx, stationID)
	if errors.Is(err, redisstore.ErrNotCached) {
		return
	}
	if err == nil && cached.DispatchID != dispatchID {
		return
	}
	if err := s.active.Delete(ctx, stationID); err != nil {
		s.logger.Warn("failed to drop active dispatch cache", zap.String("station_id", stationID), zap.Error(err))
	}
}
