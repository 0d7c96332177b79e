package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/clients"
	"cargadero/internal/hik"
	"cargadero/internal/models"
	"cargadero/internal/redisstore"
	"cargadero/internal/repository"
)

// Notifier is the outbound dispatch-started hook, satisfied by
// clients.AutomationClient.
type Notifier interface {
	NotifyDispatchStarted(ctx context.Context, payload clients.DispatchStarted)
}

// EventService reconciles normalized door controller events with the
// dispatch ledger: every event is logged, qualifying ones open a dispatch.
type EventService struct {
	events     *repository.EventRepository
	companies  *repository.CompanyRepository
	dispatches *repository.DispatchRepository
	active     ActiveStore
	notifier   Notifier

	defaultMaxLiters float64
	notifyTimeout    time.Duration
	logger           *zap.Logger
}

// NewEventService builds the reconciler. active and notifier may be nil.
func NewEventService(
	events *repository.EventRepository,
	companies *repository.CompanyRepository,
	dispatches *repository.DispatchRepository,
	active ActiveStore,
	notifier Notifier,
	defaultMaxLiters float64,
	notifyTimeout time.Duration,
	logger *zap.Logger,
) *EventService {
	if defaultMaxLiters <= 0 {
		defaultMaxLiters = 10000
	}
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &EventService{
		events:           events,
		companies:        companies,
		dispatches:       dispatches,
		active:           active,
		notifier:         notifier,
		defaultMaxLiters: defaultMaxLiters,
		notifyTimeout:    notifyTimeout,
		logger:           logger,
	}
}

// ReconcileResult reports the audit row and, when one was opened, the
// dispatch.
type ReconcileResult struct {
	EventID    int64  `json:"event_id"`
	DispatchID *int64 `json:"dispatch_id"`
}

// Reconcile appends the event to the audit log unconditionally, then decides
// whether it starts a dispatch. Only granted keypad ("password") events whose
// holder id resolves to an active company qualify; card and face grants are
// logged but never billed.
func (s *EventService) Reconcile(ctx context.Context, ev *hik.Event) (*ReconcileResult, error) {
	raw, err := json.Marshal(ev.Raw)
	if err != nil {
		raw = []byte("{}")
	}

	record := &models.AccessEvent{
		StationID:       ev.StationID,
		Ts:              ev.Ts,
		Granted:         ev.Granted,
		Result:          ev.Result,
		Reason:          ev.Reason,
		DoorIndex:       ev.DoorIndex,
		ReaderIndex:     ev.ReaderIndex,
		PersonID:        ev.PersonID,
		PersonName:      ev.PersonName,
		CredentialType:  ev.CredentialType,
		CredentialValue: ev.CredentialValue,
		Direction:       ev.Direction,
		PicURL:          ev.PicURL,
		Raw:             raw,
	}
	eventID, err := s.events.InsertAccessEvent(ctx, record)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{EventID: eventID}

	companyCode := strings.TrimSpace(ev.PersonID)
	if !ev.Granted || companyCode == "" || !strings.Contains(ev.CredentialType, "password") {
		return result, nil
	}

	company, err := s.companies.GetActiveByCode(ctx, companyCode)
	if err != nil {
		if errors.Is(err, repository.ErrCompanyNotFound) {
			// A grant for an unknown company is logged but opens nothing.
			return result, nil
		}
		return nil, err
	}

	var photoPath *string
	if ev.PicURL != "" {
		photoPath = &ev.PicURL
	}
	note := "despacho iniciado por PIN"

	dispatch := &models.Dispatch{
		StationID:        ev.StationID,
		CompanyID:        &company.ID,
		AuthorizedLiters: s.defaultMaxLiters,
		Source:           models.DispatchSourceAccessEvent,
		PhotoPath:        photoPath,
		Note:             &note,
	}
	dispatchID, err := s.dispatches.Insert(ctx, dispatch)
	if err != nil {
		return nil, err
	}
	result.DispatchID = &dispatchID

	if s.active != nil {
		if err := s.active.Save(ctx, redisstore.ActiveDispatch{
			DispatchID: dispatchID,
			StationID:  ev.StationID,
			CompanyID:  &company.ID,
			Source:     models.DispatchSourceAccessEvent,
		}); err != nil {
			s.logger.Warn("failed to cache active dispatch", zap.String("station_id", ev.StationID), zap.Error(err))
		}
	}

	s.logger.Info("access event opened dispatch",
		zap.Int64("event_id", eventID),
		zap.Int64("dispatch_id", dispatchID),
		zap.String("station_id", ev.StationID),
		zap.String("company_code", company.Code))

	if s.notifier != nil {
		// Fire-and-forget: the dispatch is already durable, the gateway being
		// down must not fail this request.
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()
		s.notifier.NotifyDispatchStarted(notifyCtx, clients.DispatchStarted{
			EventID:     eventID,
			DispatchID:  dispatchID,
			StationID:   ev.StationID,
			CompanyCode: company.Code,
			CompanyName: company.Name,
			Ts:          dispatch.StartedAt.UTC().Format(time.RFC3339),
		})
	}

	return result, nil
}
