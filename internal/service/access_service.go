package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/models"
	"cargadero/internal/pin"
	"cargadero/internal/redisstore"
	"cargadero/internal/repository"
)

var (
	// ErrInvalidCredential means no credential matches the presented PIN.
	ErrInvalidCredential = errors.New("access: invalid pin")
	// ErrCredentialDisabled means the credential exists but is disabled.
	ErrCredentialDisabled = errors.New("access: credential disabled")
	// ErrCredentialLocked means the credential is under an active lockout.
	ErrCredentialLocked = errors.New("access: credential locked")
	// ErrStationUnavailable means the station is missing or inactive.
	ErrStationUnavailable = errors.New("access: station missing or inactive")
)

// AccessPolicy carries the configured lockout and authorization defaults.
type AccessPolicy struct {
	DefaultMaxLiters float64
	MaxAttempts      int
	LockoutDuration  time.Duration
}

// AccessService verifies PIN credentials and runs the keypad ingress flow:
// verify, find-or-create session, open dispatch.
type AccessService struct {
	db          *sql.DB
	hasher      pin.Hasher
	credentials *repository.CredentialRepository
	sessions    *repository.SessionRepository
	stations    *repository.StationRepository
	dispatches  *repository.DispatchRepository
	active      ActiveStore
	policy      AccessPolicy
	logger      *zap.Logger
}

// NewAccessService builds the service. active may be nil when redis is not
// configured.
func NewAccessService(
	db *sql.DB,
	hasher pin.Hasher,
	credentials *repository.CredentialRepository,
	sessions *repository.SessionRepository,
	stations *repository.StationRepository,
	dispatches *repository.DispatchRepository,
	active ActiveStore,
	policy AccessPolicy,
	logger *zap.Logger,
) *AccessService {
	if policy.DefaultMaxLiters <= 0 {
		policy.DefaultMaxLiters = 10000
	}
	return &AccessService{
		db:          db,
		hasher:      hasher,
		credentials: credentials,
		sessions:    sessions,
		stations:    stations,
		dispatches:  dispatches,
		active:      active,
		policy:      policy,
		logger:      logger,
	}
}

// VerifyPIN resolves a raw PIN to a credential id, enforcing the enabled flag
// and any active lockout. A disabled or locked credential never authorizes,
// regardless of digest match.
func (s *AccessService) VerifyPIN(ctx context.Context, rawPIN string, at time.Time) (int64, error) {
	cred, err := s.credentials.GetByPinHash(ctx, s.hasher.Digest(rawPIN))
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return 0, ErrInvalidCredential
		}
		return 0, err
	}
	if !cred.Enabled {
		s.registerFailure(ctx, cred.ID, at)
		return 0, ErrCredentialDisabled
	}
	if cred.Locked(at) {
		s.registerFailure(ctx, cred.ID, at)
		return 0, ErrCredentialLocked
	}
	return cred.ID, nil
}

// registerFailure bumps the attempt counter for a matched-but-rejected
// credential. A PIN that matches no row cannot be attributed, so only these
// cases feed the lockout policy.
func (s *AccessService) registerFailure(ctx context.Context, credID int64, at time.Time) {
	lockedUntil := at.Add(s.policy.LockoutDuration)
	if err := s.credentials.RegisterFailure(ctx, credID, s.policy.MaxAttempts, lockedUntil); err != nil {
		s.logger.Warn("failed to register pin failure", zap.Int64("pin_user_id", credID), zap.Error(err))
	}
}

// EnsureActiveSession returns the open session for the (credential, station)
// pair, creating one with the default authorized volume when none exists.
// Sessions are never closed from this path.
func (s *AccessService) EnsureActiveSession(ctx context.Context, credID int64, stationID string) (int64, error) {
	return s.ensureActiveSession(ctx, s.sessions, credID, stationID)
}

func (s *AccessService) ensureActiveSession(ctx context.Context, sessions *repository.SessionRepository, credID int64, stationID string) (int64, error) {
	sess, err := sessions.FindActive(ctx, credID, stationID)
	if err == nil {
		return sess.ID, nil
	}
	if !errors.Is(err, repository.ErrSessionNotFound) {
		return 0, err
	}
	return sessions.Create(ctx, credID, stationID, s.policy.DefaultMaxLiters)
}

// IngressResult reports the rows created by one keypad ingress.
type IngressResult struct {
	PinUserID    int64
	PinSessionID int64
	DispatchID   int64
}

// Ingress runs the full keypad entry flow for a station. The session upsert
// and dispatch insert share one transaction.
func (s *AccessService) Ingress(ctx context.Context, stationID, rawPIN string, at time.Time) (*IngressResult, error) {
	credID, err := s.VerifyPIN(ctx, rawPIN, at)
	if err != nil {
		return nil, err
	}

	station, err := s.stations.Get(ctx, stationID)
	if err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return nil, ErrStationUnavailable
		}
		return nil, err
	}
	if !station.Active {
		return nil, ErrStationUnavailable
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sessionID, err := s.ensureActiveSession(ctx, s.sessions.WithTx(tx), credID, stationID)
	if err != nil {
		return nil, err
	}

	dispatch := &models.Dispatch{
		StationID:        stationID,
		PinUserID:        &credID,
		PinSessionID:     &sessionID,
		AuthorizedLiters: s.policy.DefaultMaxLiters,
		Source:           models.DispatchSourcePin,
	}
	dispatchID, err := s.dispatches.WithTx(tx).Insert(ctx, dispatch)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := s.credentials.RegisterSuccess(ctx, credID); err != nil {
		s.logger.Warn("failed to reset pin tries", zap.Int64("pin_user_id", credID), zap.Error(err))
	}
	if s.active != nil {
		if err := s.active.Save(ctx, redisstore.ActiveDispatch{
			DispatchID: dispatchID,
			StationID:  stationID,
			PinUserID:  &credID,
			Source:     models.DispatchSourcePin,
		}); err != nil {
			s.logger.Warn("failed to cache active dispatch", zap.String("station_id", stationID), zap.Error(err))
		}
	}

	s.logger.Info("pin ingress accepted",
		zap.String("station_id", stationID),
		zap.Int64("pin_user_id", credID),
		zap.Int64("dispatch_id", dispatchID))

	return &IngressResult{PinUserID: credID, PinSessionID: sessionID, DispatchID: dispatchID}, nil
}
