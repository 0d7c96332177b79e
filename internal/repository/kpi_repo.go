package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// KPIFilters narrows KPI aggregation by time range, station and company.
type KPIFilters struct {
	From      *time.Time
	To        *time.Time
	StationID string
	CompanyID *int64
}

// KPISummary is the flat aggregate over dispatches.
type KPISummary struct {
	TotalLiters    float64 `json:"total_liters"`
	DispatchCount  int64   `json:"dispatch_count"`
	CompaniesCount int64   `json:"companies_count"`
	StationsCount  int64   `json:"stations_count"`
}

// KPICompanyRow is one company in the by-company ranking.
type KPICompanyRow struct {
	CompanyID     *int64  `json:"company_id"`
	CompanyName   *string `json:"company_name"`
	CompanyCode   *string `json:"company_code"`
	Liters        float64 `json:"liters"`
	DispatchCount int64   `json:"dispatch_count"`
}

// KPIStationRow is one station in the by-station ranking.
type KPIStationRow struct {
	StationID     string  `json:"station_id"`
	StationName   string  `json:"station_name"`
	Liters        float64 `json:"liters"`
	DispatchCount int64   `json:"dispatch_count"`
}

// KPIRepository runs read-only aggregation queries over dispatches.
type KPIRepository struct {
	db Querier
}

// NewKPIRepository returns repository.
func NewKPIRepository(db *sql.DB) *KPIRepository {
	return &KPIRepository{db: db}
}

func buildWhere(f KPIFilters, withStation, withCompany bool) (string, []any) {
	var (
		clauses []string
		params  []any
	)
	add := func(clause string, value any) {
		params = append(params, value)
		clauses = append(clauses, fmt.Sprintf("%s $%d", clause, len(params)))
	}

	if f.From != nil {
		add("d.started_at >=", *f.From)
	}
	if f.To != nil {
		add("d.started_at <", *f.To)
	}
	if withStation && f.StationID != "" {
		add("d.station_id =", f.StationID)
	}
	if withCompany && f.CompanyID != nil {
		add("d.company_id =", *f.CompanyID)
	}

	if len(clauses) == 0 {
		return "", params
	}
	return "WHERE " + strings.Join(clauses, " AND "), params
}

// Summary returns totals over the filtered dispatch set.
func (r *KPIRepository) Summary(ctx context.Context, f KPIFilters) (*KPISummary, error) {
	where, params := buildWhere(f, true, true)
	query := fmt.Sprintf(`
		SELECT
		  COALESCE(SUM(COALESCE(d.liters, 0)), 0) AS total_liters,
		  COUNT(*)::bigint AS dispatch_count,
		  COUNT(DISTINCT d.company_id)::bigint AS companies_count,
		  COUNT(DISTINCT d.station_id)::bigint AS stations_count
		FROM dispatch d
		%s
	`, where)

	var s KPISummary
	err := r.db.QueryRowContext(ctx, query, params...).
		Scan(&s.TotalLiters, &s.DispatchCount, &s.CompaniesCount, &s.StationsCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ByCompany ranks companies by delivered liters. The company filter is
// ignored because the query groups by company.
func (r *KPIRepository) ByCompany(ctx context.Context, f KPIFilters, top int) ([]KPICompanyRow, error) {
	top = clampTop(top)
	where, params := buildWhere(f, true, false)
	query := fmt.Sprintf(`
		SELECT
		  d.company_id,
		  c.name AS company_name,
		  c.code AS company_code,
		  COALESCE(SUM(COALESCE(d.liters, 0)), 0) AS liters,
		  COUNT(*)::bigint AS dispatch_count
		FROM dispatch d
		LEFT JOIN company c ON c.id = d.company_id
		%s
		GROUP BY d.company_id, c.name, c.code
		ORDER BY liters DESC
		LIMIT $%d
	`, where, len(params)+1)
	params = append(params, top)

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []KPICompanyRow
	for rows.Next() {
		var row KPICompanyRow
		if err := rows.Scan(&row.CompanyID, &row.CompanyName, &row.CompanyCode, &row.Liters, &row.DispatchCount); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ByStation ranks stations by delivered liters.
func (r *KPIRepository) ByStation(ctx context.Context, f KPIFilters, top int) ([]KPIStationRow, error) {
	top = clampTop(top)
	where, params := buildWhere(f, false, true)
	query := fmt.Sprintf(`
		SELECT
		  d.station_id,
		  s.name AS station_name,
		  COALESCE(SUM(COALESCE(d.liters, 0)), 0) AS liters,
		  COUNT(*)::bigint AS dispatch_count
		FROM dispatch d
		LEFT JOIN station s ON s.id = d.station_id
		%s
		GROUP BY d.station_id, s.name
		ORDER BY liters DESC
		LIMIT $%d
	`, where, len(params)+1)
	params = append(params, top)

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []KPIStationRow
	for rows.Next() {
		var (
			row  KPIStationRow
			name *string
		)
		if err := rows.Scan(&row.StationID, &name, &row.Liters, &row.DispatchCount); err != nil {
			return nil, err
		}
		if name != nil && *name != "" {
			row.StationName = *name
		} else {
			row.StationName = row.StationID
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func clampTop(top int) int {
	if top < 1 {
		return 1
	}
	if top > 500 {
		return 500
	}
	return top
}
