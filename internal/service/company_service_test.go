package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cargadero/internal/repository"
	"cargadero/internal/sync"
)

type fakeSyncer struct {
	calls []struct {
		Op   sync.Op
		User sync.KeypadUser
	}
	err error
}

func (f *fakeSyncer) SyncCredential(_ context.Context, op sync.Op, user sync.KeypadUser) (int, []byte, error) {
	f.calls = append(f.calls, struct {
		Op   sync.Op
		User sync.KeypadUser
	}{op, user})
	if f.err != nil {
		return 0, nil, f.err
	}
	return 200, []byte(`{"ok":true}`), nil
}

func newCompanyService(t *testing.T, syncer sync.Syncer) (*CompanyService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewCompanyService(repository.NewCompanyRepository(db), syncer, 1, zap.NewNop())
	return svc, mock
}

func companyRow(id int64, name, code string, pin *string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "code", "pin", "active", "created_at", "updated_at"}).
		AddRow(id, name, code, pin, true, now, now)
}

func TestCompanyUpsert_PushesKeypadCredential(t *testing.T) {
	syncer := &fakeSyncer{}
	svc, mock := newCompanyService(t, syncer)

	pin := "4455"
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO company")).
		WithArgs("Aguas del Sur", "ADS", &pin).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1")).
		WithArgs("ADS").
		WillReturnRows(companyRow(7, "Aguas del Sur", "ADS", &pin))

	company, err := svc.Upsert(context.Background(), UpsertInput{Name: " Aguas del Sur ", Code: " ADS ", Pin: &pin})
	require.NoError(t, err)
	assert.Equal(t, int64(7), company.ID)

	require.Len(t, syncer.calls, 1)
	call := syncer.calls[0]
	assert.Equal(t, sync.OpUpsert, call.Op)
	assert.Equal(t, "ADS", call.User.EmployeeNo)
	assert.Equal(t, "4455", call.User.Password)
	assert.Equal(t, []int{1}, call.User.DoorNos)
	assert.True(t, call.User.ValidTo.After(call.User.ValidFrom))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyUpsert_SyncFailureIsNotFatal(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("terminal offline")}
	svc, mock := newCompanyService(t, syncer)

	pin := "4455"
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO company")).
		WithArgs("Aguas del Sur", "ADS", &pin).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1")).
		WithArgs("ADS").
		WillReturnRows(companyRow(7, "Aguas del Sur", "ADS", &pin))

	company, err := svc.Upsert(context.Background(), UpsertInput{Name: "Aguas del Sur", Code: "ADS", Pin: &pin})
	require.NoError(t, err)
	assert.Equal(t, "ADS", company.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyUpsert_NoPinSkipsSync(t *testing.T) {
	syncer := &fakeSyncer{}
	svc, mock := newCompanyService(t, syncer)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO company")).
		WithArgs("Aguas del Sur", "ADS", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1")).
		WithArgs("ADS").
		WillReturnRows(companyRow(7, "Aguas del Sur", "ADS", nil))

	blank := "  "
	_, err := svc.Upsert(context.Background(), UpsertInput{Name: "Aguas del Sur", Code: "ADS", Pin: &blank})
	require.NoError(t, err)
	assert.Empty(t, syncer.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyUpsert_RequiresNameAndCode(t *testing.T) {
	svc, _ := newCompanyService(t, nil)
	_, err := svc.Upsert(context.Background(), UpsertInput{Name: "", Code: "ADS"})
	assert.Error(t, err)
	_, err = svc.Upsert(context.Background(), UpsertInput{Name: "Aguas", Code: "  "})
	assert.Error(t, err)
}

func TestCompanyDeactivate_RemovesKeypadUser(t *testing.T) {
	syncer := &fakeSyncer{}
	svc, mock := newCompanyService(t, syncer)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE company SET active = FALSE")).
		WithArgs("ADS").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Deactivate(context.Background(), "ADS"))
	require.Len(t, syncer.calls, 1)
	assert.Equal(t, sync.OpDelete, syncer.calls[0].Op)
	assert.Equal(t, "ADS", syncer.calls[0].User.EmployeeNo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyDeactivate_UnknownCode(t *testing.T) {
	svc, mock := newCompanyService(t, nil)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE company SET active = FALSE")).
		WithArgs("NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.Deactivate(context.Background(), "NOPE")
	assert.ErrorIs(t, err, repository.ErrCompanyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyPush_MissingPin(t *testing.T) {
	svc, mock := newCompanyService(t, &fakeSyncer{})

	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1 AND active")).
		WithArgs("ADS").
		WillReturnRows(companyRow(7, "Aguas del Sur", "ADS", nil))

	err := svc.Push(context.Background(), "ADS")
	assert.ErrorIs(t, err, ErrMissingPin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyPush_InactiveCompany(t *testing.T) {
	svc, mock := newCompanyService(t, &fakeSyncer{})

	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1 AND active")).
		WithArgs("ADS").
		WillReturnError(sql.ErrNoRows)

	err := svc.Push(context.Background(), "ADS")
	assert.ErrorIs(t, err, repository.ErrCompanyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
