package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/clients"
	"cargadero/internal/models"
	"cargadero/internal/redisstore"
	"cargadero/internal/repository"
)

// ErrInvalidOutput reports a digital output command outside ch 1-2 / state 0-1.
var ErrInvalidOutput = errors.New("plc: invalid output parameters")

// ErrPLCUnavailable mirrors the client sentinel for handler mapping.
var ErrPLCUnavailable = clients.ErrPLCUnconfigured

// OutputDriver is the digital output capability, satisfied by
// clients.PLCClient.
type OutputDriver interface {
	Enabled() bool
	SetOutput(ctx context.Context, ch, status int) error
	TrySetOutput(ctx context.Context, ch, status int)
}

// PLCService interprets digital input transitions into dispatch start/stop
// commands and mirrored digital output pulses. Database writes for one input
// event share a transaction; output commands are not transactional with them
// and may diverge under fault.
type PLCService struct {
	db         *sql.DB
	dispatches *repository.DispatchRepository
	events     *repository.EventRepository
	active     ActiveStore
	outputs    OutputDriver
	logger     *zap.Logger
}

// NewPLCService builds the dispatcher. active may be nil.
func NewPLCService(
	db *sql.DB,
	dispatches *repository.DispatchRepository,
	events *repository.EventRepository,
	active ActiveStore,
	outputs OutputDriver,
	logger *zap.Logger,
) *PLCService {
	return &PLCService{
		db:         db,
		dispatches: dispatches,
		events:     events,
		active:     active,
		outputs:    outputs,
		logger:     logger,
	}
}

// classifyInput maps an input transition to a pump event state.
func classifyInput(di string, state int) string {
	switch {
	case di == "DI1" && state == 1:
		return models.PumpEventStartPressed
	case di == "DI2" && state == 1:
		return models.PumpEventStopPressed
	default:
		return models.PumpEventDIChange
	}
}

// OnDigitalInput records the transition and, on a stop press, closes the
// running dispatch at the station.
func (s *PLCService) OnDigitalInput(ctx context.Context, stationID, di string, state int) error {
	ts := time.Now().UTC()

	dispatchID := s.findRunning(ctx, stationID)
	eventState := classifyInput(di, state)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pump := &models.PumpEvent{
		StationID:  stationID,
		DispatchID: dispatchID,
		Ts:         ts,
		State:      eventState,
		Source:     "controller",
		Note:       fmt.Sprintf("%s=%d", di, state),
	}
	if err := s.events.WithTx(tx).InsertPumpEvent(ctx, pump); err != nil {
		return err
	}

	if eventState == models.PumpEventStopPressed && dispatchID != nil {
		if err := s.dispatches.WithTx(tx).Close(ctx, *dispatchID, ts); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	switch eventState {
	case models.PumpEventStartPressed:
		s.outputs.TrySetOutput(ctx, 1, 1)
	case models.PumpEventStopPressed:
		s.outputs.TrySetOutput(ctx, 1, 0)
		// Pulse DO2 on then off.
		s.outputs.TrySetOutput(ctx, 2, 1)
		s.outputs.TrySetOutput(ctx, 2, 0)
		if dispatchID != nil && s.active != nil {
			if err := s.active.Delete(ctx, stationID); err != nil {
				s.logger.Warn("failed to drop active dispatch cache", zap.String("station_id", stationID), zap.Error(err))
			}
		}
	}

	return nil
}

// findRunning resolves the newest running dispatch at the station, trying
// the cache first. The database stays authoritative: the cache is refreshed
// on every open and dropped on every close, so a hit is trusted.
func (s *PLCService) findRunning(ctx context.Context, stationID string) *int64 {
	if s.active != nil {
		if cached, err := s.active.Get(ctx, stationID); err == nil {
			return &cached.DispatchID
		} else if !errors.Is(err, redisstore.ErrNotCached) {
			s.logger.Warn("active dispatch cache lookup failed", zap.String("station_id", stationID), zap.Error(err))
		}
	}

	dispatch, err := s.dispatches.LatestRunning(ctx, stationID)
	if err != nil {
		if !errors.Is(err, repository.ErrDispatchNotFound) {
			s.logger.Warn("running dispatch lookup failed", zap.String("station_id", stationID), zap.Error(err))
		}
		return nil
	}
	return &dispatch.ID
}

// SetOutput is the manual override for one digital output channel.
func (s *PLCService) SetOutput(ctx context.Context, ch, status int) error {
	if (ch != 1 && ch != 2) || (status != 0 && status != 1) {
		return ErrInvalidOutput
	}
	if !s.outputs.Enabled() {
		return ErrPLCUnavailable
	}
	return s.outputs.SetOutput(ctx, ch, status)
}
