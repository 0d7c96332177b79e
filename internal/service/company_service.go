package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/models"
	"cargadero/internal/repository"
	"cargadero/internal/sync"
)

// ErrMissingPin means a sync push was requested for a company with no PIN
// to provision.
var ErrMissingPin = errors.New("company: no pin configured")

// keypadValidity is how long a provisioned keypad user stays valid on the
// terminal. Re-provisioning renews the window.
const keypadValidity = 10 * 365 * 24 * time.Hour

// CompanyService manages billable companies and mirrors their keypad
// credentials to the door terminal.
type CompanyService struct {
	companies *repository.CompanyRepository
	syncer    sync.Syncer
	doorNo    int
	logger    *zap.Logger
}

func NewCompanyService(companies *repository.CompanyRepository, syncer sync.Syncer, doorNo int, logger *zap.Logger) *CompanyService {
	if doorNo <= 0 {
		doorNo = 1
	}
	return &CompanyService{companies: companies, syncer: syncer, doorNo: doorNo, logger: logger}
}

// UpsertInput creates or updates a company keyed by code.
type UpsertInput struct {
	Name string  `json:"name"`
	Code string  `json:"code"`
	Pin  *string `json:"pin"`
}

// Upsert persists the company and, when a PIN is present, pushes the keypad
// credential to the terminal. The push is best effort: the company row is
// authoritative and a later explicit push can retry.
func (s *CompanyService) Upsert(ctx context.Context, in UpsertInput) (*models.Company, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" || code == "" {
		return nil, errors.New("company: name and code are required")
	}
	var pin *string
	if in.Pin != nil {
		trimmed := strings.TrimSpace(*in.Pin)
		if trimmed != "" {
			pin = &trimmed
		}
	}

	if _, err := s.companies.Upsert(ctx, name, code, pin); err != nil {
		return nil, err
	}
	company, err := s.companies.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if pin != nil {
		if err := s.push(ctx, company); err != nil {
			s.logger.Warn("keypad provisioning failed",
				zap.String("code", company.Code),
				zap.Error(err))
		}
	}
	return company, nil
}

// Deactivate soft-deletes the company and best-effort removes its keypad
// user from the terminal.
func (s *CompanyService) Deactivate(ctx context.Context, code string) error {
	if err := s.companies.Deactivate(ctx, code); err != nil {
		return err
	}
	if s.syncer != nil {
		user := sync.KeypadUser{EmployeeNo: code}
		if _, _, err := s.syncer.SyncCredential(ctx, sync.OpDelete, user); err != nil {
			s.logger.Warn("keypad removal failed", zap.String("code", code), zap.Error(err))
		}
	}
	return nil
}

func (s *CompanyService) List(ctx context.Context, activeOnly bool) ([]models.Company, error) {
	return s.companies.List(ctx, activeOnly)
}

// KeypadUsers lists the active companies that carry a PIN, i.e. the set that
// should exist on the door terminal.
func (s *CompanyService) KeypadUsers(ctx context.Context, limit int) ([]models.Company, error) {
	return s.companies.ListKeypadUsers(ctx, limit)
}

// KeypadUser resolves one active company by code for credential inspection.
func (s *CompanyService) KeypadUser(ctx context.Context, code string) (*models.Company, error) {
	return s.companies.GetActiveByCode(ctx, code)
}

// Push re-provisions one company's keypad credential on demand.
func (s *CompanyService) Push(ctx context.Context, code string) error {
	company, err := s.companies.GetActiveByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.push(ctx, company)
}

func (s *CompanyService) push(ctx context.Context, company *models.Company) error {
	if s.syncer == nil {
		return errors.New("company: keypad sync not configured")
	}
	if company.Pin == nil || *company.Pin == "" {
		return ErrMissingPin
	}
	now := time.Now().UTC()
	user := sync.KeypadUser{
		EmployeeNo: company.Code,
		Name:       company.Name,
		Password:   *company.Pin,
		DoorNos:    []int{s.doorNo},
		ValidFrom:  now,
		ValidTo:    now.Add(keypadValidity),
	}
	status, body, err := s.syncer.SyncCredential(ctx, sync.OpUpsert, user)
	if err != nil {
		return err
	}
	s.logger.Info("keypad credential pushed",
		zap.String("code", company.Code),
		zap.Int("status", status),
		zap.Int("response_bytes", len(body)))
	return nil
}
