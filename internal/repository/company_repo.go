package repository

import (
	"context"
	"database/sql"
	"errors"

	"cargadero/internal/models"
)

// ErrCompanyNotFound indicates a missing or inactive company row.
var ErrCompanyNotFound = errors.New("company not found")

// CompanyRepository stores billing companies, which double as keypad users.
type CompanyRepository struct {
	db Querier
}

// NewCompanyRepository returns repository.
func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *CompanyRepository) WithTx(tx *sql.Tx) *CompanyRepository {
	return &CompanyRepository{db: tx}
}

// Upsert creates or updates a company by code and reactivates it.
func (r *CompanyRepository) Upsert(ctx context.Context, name, code string, pin *string) (int64, error) {
	const query = `
		INSERT INTO company (name, code, pin, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			pin = EXCLUDED.pin,
			updated_at = NOW(),
			active = TRUE
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, name, code, pin).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// List returns companies, optionally only active ones.
func (r *CompanyRepository) List(ctx context.Context, activeOnly bool) ([]models.Company, error) {
	query := `
		SELECT id, name, code, pin, active, created_at, updated_at
		FROM company
		ORDER BY id
	`
	if activeOnly {
		query = `
		SELECT id, name, code, pin, active, created_at, updated_at
		FROM company
		WHERE active
		ORDER BY id
	`
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Pin, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

// GetActiveByCode resolves an active company by its code.
func (r *CompanyRepository) GetActiveByCode(ctx context.Context, code string) (*models.Company, error) {
	const query = `
		SELECT id, name, code, pin, active, created_at, updated_at
		FROM company
		WHERE code = $1 AND active
	`
	return r.scanOne(ctx, query, code)
}

// GetByCode resolves a company by code regardless of its active flag.
func (r *CompanyRepository) GetByCode(ctx context.Context, code string) (*models.Company, error) {
	const query = `
		SELECT id, name, code, pin, active, created_at, updated_at
		FROM company
		WHERE code = $1
	`
	return r.scanOne(ctx, query, code)
}

func (r *CompanyRepository) scanOne(ctx context.Context, query, code string) (*models.Company, error) {
	var c models.Company
	err := r.db.QueryRowContext(ctx, query, code).
		Scan(&c.ID, &c.Name, &c.Code, &c.Pin, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Deactivate soft-deletes a company by code.
func (r *CompanyRepository) Deactivate(ctx context.Context, code string) error {
	const query = `
		UPDATE company SET active = FALSE, updated_at = NOW() WHERE code = $1
	`
	result, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

// ListKeypadUsers returns active companies with a non-empty PIN, the set that
// gets provisioned on the door keypad.
func (r *CompanyRepository) ListKeypadUsers(ctx context.Context, limit int) ([]models.Company, error) {
	if limit <= 0 {
		limit = 2000
	}
	const query = `
		SELECT id, name, code, pin, active, created_at, updated_at
		FROM company
		WHERE active AND pin IS NOT NULL AND pin <> ''
		ORDER BY code ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Pin, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}
