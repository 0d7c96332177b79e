package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWhere(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	companyID := int64(4)

	testCases := []struct {
		name        string
		filters     KPIFilters
		withStation bool
		withCompany bool
		where       string
		params      int
	}{
		{
			name: "empty",
		},
		{
			name:    "time range",
			filters: KPIFilters{From: &from, To: &to},
			where:   "WHERE d.started_at >= $1 AND d.started_at < $2",
			params:  2,
		},
		{
			name:        "all filters",
			filters:     KPIFilters{From: &from, To: &to, StationID: "PALACIO", CompanyID: &companyID},
			withStation: true,
			withCompany: true,
			where:       "WHERE d.started_at >= $1 AND d.started_at < $2 AND d.station_id = $3 AND d.company_id = $4",
			params:      4,
		},
		{
			name:        "station filter suppressed when grouping by station",
			filters:     KPIFilters{StationID: "PALACIO", CompanyID: &companyID},
			withStation: false,
			withCompany: true,
			where:       "WHERE d.company_id = $1",
			params:      1,
		},
		{
			name:        "company filter suppressed when grouping by company",
			filters:     KPIFilters{StationID: "PALACIO", CompanyID: &companyID},
			withStation: true,
			withCompany: false,
			where:       "WHERE d.station_id = $1",
			params:      1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			where, params := buildWhere(tc.filters, tc.withStation, tc.withCompany)
			assert.Equal(t, tc.where, where)
			assert.Len(t, params, tc.params)
		})
	}
}

func TestClampTop(t *testing.T) {
	assert.Equal(t, 1, clampTop(0))
	assert.Equal(t, 1, clampTop(-5))
	assert.Equal(t, 10, clampTop(10))
	assert.Equal(t, 500, clampTop(500))
	assert.Equal(t, 500, clampTop(9999))
}

func TestKPISummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewKPIRepository(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM dispatch d")).
		WithArgs(from).
		WillReturnRows(sqlmock.NewRows([]string{"total_liters", "dispatch_count", "companies_count", "stations_count"}).
			AddRow(12345.5, int64(42), int64(3), int64(2)))

	summary, err := repo.Summary(context.Background(), KPIFilters{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 12345.5, summary.TotalLiters)
	assert.Equal(t, int64(42), summary.DispatchCount)
	assert.Equal(t, int64(3), summary.CompaniesCount)
	assert.Equal(t, int64(2), summary.StationsCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKPIByCompany_AppendsTopAfterFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewKPIRepository(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $3")).
		WithArgs(from, "PALACIO", 5).
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "company_name", "company_code", "liters", "dispatch_count"}).
			AddRow(int64(4), "Aguas del Sur", "ADS", 900.0, int64(9)).
			AddRow(nil, nil, nil, 100.0, int64(2)))

	rows, err := repo.ByCompany(context.Background(), KPIFilters{From: &from, StationID: "PALACIO"}, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ADS", *rows[0].CompanyCode)
	assert.Nil(t, rows[1].CompanyID, "dispatches without a company still aggregate")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKPIByStation_FallsBackToStationID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewKPIRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN station s")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"station_id", "station_name", "liters", "dispatch_count"}).
			AddRow("PALACIO", nil, 500.0, int64(5)))

	rows, err := repo.ByStation(context.Background(), KPIFilters{}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PALACIO", rows[0].StationName)
	require.NoError(t, mock.ExpectationsWereMet())
}
