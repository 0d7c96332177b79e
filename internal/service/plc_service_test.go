package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cargadero/internal/repository"
)

type fakeOutputs struct {
	enabled  bool
	commands [][2]int
	err      error
}

func (f *fakeOutputs) Enabled() bool { return f.enabled }

func (f *fakeOutputs) SetOutput(_ context.Context, ch, status int) error {
	f.commands = append(f.commands, [2]int{ch, status})
	return f.err
}

func (f *fakeOutputs) TrySetOutput(ctx context.Context, ch, status int) {
	_ = f.SetOutput(ctx, ch, status)
}

func newPLCService(t *testing.T, outputs OutputDriver) (*PLCService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewPLCService(
		db,
		repository.NewDispatchRepository(db),
		repository.NewEventRepository(db),
		nil,
		outputs,
		zap.NewNop(),
	)
	return svc, mock
}

func TestClassifyInput(t *testing.T) {
	testCases := []struct {
		di       string
		state    int
		expected string
	}{
		{"DI1", 1, "start_pressed"},
		{"DI2", 1, "stop_pressed"},
		{"DI1", 0, "di_change"},
		{"DI2", 0, "di_change"},
		{"DI3", 1, "di_change"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, classifyInput(tc.di, tc.state), "%s=%d", tc.di, tc.state)
	}
}

func TestOnDigitalInput_StopClosesDispatch(t *testing.T) {
	outputs := &fakeOutputs{enabled: true}
	svc, mock := newPLCService(t, outputs)

	// No redis store wired, so the running dispatch comes from the database.
	mock.ExpectQuery(regexp.QuoteMeta("status = 'running'")).
		WithArgs("PALACIO").
		WillReturnRows(dispatchRows(9, "PALACIO", "running"))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pump_event")).
		WithArgs("PALACIO", int64(9), sqlmock.AnyArg(), "stop_pressed", "controller", "DI2=1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'stopped'")).
		WithArgs(int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.OnDigitalInput(context.Background(), "PALACIO", "DI2", 1))

	// DO1 off, then the DO2 pulse.
	assert.Equal(t, [][2]int{{1, 0}, {2, 1}, {2, 0}}, outputs.commands)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnDigitalInput_StartRecordsAndEnergizes(t *testing.T) {
	outputs := &fakeOutputs{enabled: true}
	svc, mock := newPLCService(t, outputs)

	mock.ExpectQuery(regexp.QuoteMeta("status = 'running'")).
		WithArgs("PALACIO").
		WillReturnRows(dispatchRows(9, "PALACIO", "running"))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pump_event")).
		WithArgs("PALACIO", int64(9), sqlmock.AnyArg(), "start_pressed", "controller", "DI1=1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	require.NoError(t, svc.OnDigitalInput(context.Background(), "PALACIO", "DI1", 1))
	assert.Equal(t, [][2]int{{1, 1}}, outputs.commands)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnDigitalInput_NoRunningDispatch(t *testing.T) {
	outputs := &fakeOutputs{enabled: true}
	svc, mock := newPLCService(t, outputs)

	mock.ExpectQuery(regexp.QuoteMeta("status = 'running'")).
		WithArgs("PALACIO").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pump_event")).
		WithArgs("PALACIO", nil, sqlmock.AnyArg(), "stop_pressed", "controller", "DI2=1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	// The stop press is recorded even with nothing to close.
	require.NoError(t, svc.OnDigitalInput(context.Background(), "PALACIO", "DI2", 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOutput_Validation(t *testing.T) {
	outputs := &fakeOutputs{enabled: true}
	svc, _ := newPLCService(t, outputs)

	assert.ErrorIs(t, svc.SetOutput(context.Background(), 3, 1), ErrInvalidOutput)
	assert.ErrorIs(t, svc.SetOutput(context.Background(), 1, 2), ErrInvalidOutput)
	assert.NoError(t, svc.SetOutput(context.Background(), 2, 0))
}

func TestSetOutput_Unconfigured(t *testing.T) {
	svc, _ := newPLCService(t, &fakeOutputs{enabled: false})
	assert.ErrorIs(t, svc.SetOutput(context.Background(), 1, 1), ErrPLCUnavailable)
}
