package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cargadero/internal/clients"
	"cargadero/internal/hik"
	"cargadero/internal/repository"
)

type recordingNotifier struct {
	payloads []clients.DispatchStarted
}

func (n *recordingNotifier) NotifyDispatchStarted(_ context.Context, payload clients.DispatchStarted) {
	n.payloads = append(n.payloads, payload)
}

func newEventService(t *testing.T, notifier Notifier) (*EventService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewEventService(
		repository.NewEventRepository(db),
		repository.NewCompanyRepository(db),
		repository.NewDispatchRepository(db),
		nil,
		notifier,
		10000,
		time.Second,
		zap.NewNop(),
	)
	return svc, mock
}

func grantedEvent(credentialType string) *hik.Event {
	return &hik.Event{
		StationID:      "PALACIO",
		Ts:             time.Now().UTC(),
		Granted:        true,
		Result:         "success",
		PersonID:       "EMP001",
		PersonName:     "Aguas del Sur",
		CredentialType: credentialType,
		Raw:            map[string]any{"eventType": "AccessControllerEvent"},
	}
}

func TestReconcile_PasswordGrantOpensDispatch(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, mock := newEventService(t, notifier)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO access_event")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery(regexp.QuoteMeta("FROM company")).
		WithArgs("EMP001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "code", "pin", "active", "created_at", "updated_at"}).
			AddRow(4, "Aguas del Sur", "EMP001", nil, true, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dispatch")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at"}).AddRow(55, time.Now()))

	result, err := svc.Reconcile(context.Background(), grantedEvent("password"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.EventID)
	require.NotNil(t, result.DispatchID)
	assert.Equal(t, int64(55), *result.DispatchID)

	require.Len(t, notifier.payloads, 1)
	assert.Equal(t, "EMP001", notifier.payloads[0].CompanyCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_CardGrantOnlyLogs(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, mock := newEventService(t, notifier)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO access_event")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))

	result, err := svc.Reconcile(context.Background(), grantedEvent("card"))
	require.NoError(t, err)
	assert.Nil(t, result.DispatchID)
	assert.Empty(t, notifier.payloads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_DeniedEventOnlyLogs(t *testing.T) {
	svc, mock := newEventService(t, nil)

	ev := grantedEvent("password")
	ev.Granted = false
	ev.Result = "denied"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO access_event")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(102))

	result, err := svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Nil(t, result.DispatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_UnknownCompanyOnlyLogs(t *testing.T) {
	svc, mock := newEventService(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO access_event")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(103))
	mock.ExpectQuery(regexp.QuoteMeta("FROM company")).
		WithArgs("EMP001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := svc.Reconcile(context.Background(), grantedEvent("password"))
	require.NoError(t, err)
	assert.Equal(t, int64(103), result.EventID)
	assert.Nil(t, result.DispatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_EmptyPersonIDOnlyLogs(t *testing.T) {
	svc, mock := newEventService(t, nil)

	ev := grantedEvent("password")
	ev.PersonID = "  "

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO access_event")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(104))

	result, err := svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Nil(t, result.DispatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
