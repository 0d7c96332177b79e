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

	"cargadero/internal/pin"
	"cargadero/internal/repository"
)

func newAccessService(t *testing.T) (*AccessService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewAccessService(
		db,
		pin.NewSHA256Hasher(),
		repository.NewCredentialRepository(db),
		repository.NewSessionRepository(db),
		repository.NewStationRepository(db),
		repository.NewDispatchRepository(db),
		nil,
		AccessPolicy{DefaultMaxLiters: 10000, MaxAttempts: 5, LockoutDuration: 15 * time.Minute},
		zap.NewNop(),
	)
	return svc, mock
}

func credentialRows(id int64, hash string, enabled bool, tries int, lockedUntil *time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "pin_hash", "enabled", "tries", "locked_until", "created_at"}).
		AddRow(id, hash, enabled, tries, lockedUntil, time.Now())
}

func TestVerifyPIN_UnknownPin(t *testing.T) {
	svc, mock := newAccessService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_user")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.VerifyPIN(context.Background(), "0000", time.Now())
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPIN_DisabledRegistersFailure(t *testing.T) {
	svc, mock := newAccessService(t)
	hash := pin.NewSHA256Hasher().Digest("1234")

	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_user")).
		WithArgs(hash).
		WillReturnRows(credentialRows(7, hash, false, 2, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pin_user")).
		WithArgs(int64(7), 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.VerifyPIN(context.Background(), "1234", time.Now())
	assert.ErrorIs(t, err, ErrCredentialDisabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPIN_LockedRegistersFailure(t *testing.T) {
	svc, mock := newAccessService(t)
	hash := pin.NewSHA256Hasher().Digest("1234")
	until := time.Now().Add(10 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_user")).
		WithArgs(hash).
		WillReturnRows(credentialRows(7, hash, true, 5, &until))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pin_user")).
		WithArgs(int64(7), 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.VerifyPIN(context.Background(), "1234", time.Now())
	assert.ErrorIs(t, err, ErrCredentialLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPIN_ExpiredLockAuthorizes(t *testing.T) {
	svc, mock := newAccessService(t)
	hash := pin.NewSHA256Hasher().Digest("1234")
	until := time.Now().Add(-1 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_user")).
		WithArgs(hash).
		WillReturnRows(credentialRows(7, hash, true, 5, &until))

	id, err := svc.VerifyPIN(context.Background(), "1234", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngress_FullFlow(t *testing.T) {
	svc, mock := newAccessService(t)
	hash := pin.NewSHA256Hasher().Digest("4321")

	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_user")).
		WithArgs(hash).
		WillReturnRows(credentialRows(3, hash, true, 0, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM station")).
		WithArgs("PALACIO").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "device_ip", "created_at"}).
			AddRow("PALACIO", nil, true, nil, time.Now()))

	mock.ExpectBegin()
	// No open session for the pair, a new one is created inside the tx.
	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_session")).
		WithArgs(int64(3), "PALACIO").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pin_session")).
		WithArgs(int64(3), "PALACIO", float64(10000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dispatch")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at"}).AddRow(42, time.Now()))
	mock.ExpectCommit()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pin_user")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Ingress(context.Background(), "PALACIO", "4321", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.PinUserID)
	assert.Equal(t, int64(11), result.PinSessionID)
	assert.Equal(t, int64(42), result.DispatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngress_ReusesOpenSession(t *testing.T) {
	svc, mock := newAccessService(t)
	hash := pin.NewSHA256Hasher().Digest("4321")

	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_user")).
		WithArgs(hash).
		WillReturnRows(credentialRows(3, hash, true, 0, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM station")).
		WithArgs("PALACIO").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "device_ip", "created_at"}).
			AddRow("PALACIO", nil, true, nil, time.Now()))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_session")).
		WithArgs(int64(3), "PALACIO").
		WillReturnRows(sqlmock.NewRows([]string{"id", "pin_user_id", "station_id", "max_liters", "status", "started_at"}).
			AddRow(11, 3, "PALACIO", 10000.0, "active", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dispatch")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at"}).AddRow(43, time.Now()))
	mock.ExpectCommit()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pin_user")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Ingress(context.Background(), "PALACIO", "4321", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(11), result.PinSessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngress_InactiveStation(t *testing.T) {
	svc, mock := newAccessService(t)
	hash := pin.NewSHA256Hasher().Digest("4321")

	mock.ExpectQuery(regexp.QuoteMeta("FROM pin_user")).
		WithArgs(hash).
		WillReturnRows(credentialRows(3, hash, true, 0, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM station")).
		WithArgs("CLOSED").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "device_ip", "created_at"}).
			AddRow("CLOSED", nil, false, nil, time.Now()))

	_, err := svc.Ingress(context.Background(), "CLOSED", "4321", time.Now())
	assert.ErrorIs(t, err, ErrStationUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
