// Package sync pushes keypad credentials to the door-access side through one
// of three interchangeable transports, selected by configuration.
package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cargadero/internal/config"
)

// Op is the provisioning operation.
type Op string

// Provisioning operations.
const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// KeypadUser is the canonical credential shape provisioned on the keypad.
// EmployeeNo carries the company code; Password the shared PIN.
type KeypadUser struct {
	EmployeeNo string    `json:"employeeNo"`
	Name       string    `json:"name"`
	Password   string    `json:"password,omitempty"`
	DoorNos    []int     `json:"doorNos"`
	ValidFrom  time.Time `json:"validFrom"`
	ValidTo    time.Time `json:"validTo"`
}

// Syncer is the outbound credential sync capability. Implementations return
// the transport status code and response body for diagnostics.
type Syncer interface {
	SyncCredential(ctx context.Context, op Op, user KeypadUser) (int, []byte, error)
}

const syncTimeout = 10 * time.Second

// New selects a Syncer implementation from configuration.
func New(cfg *config.Config, logger *zap.Logger) (Syncer, error) {
	switch cfg.Sync.Mode {
	case config.SyncModeDevice:
		return NewDeviceSyncer(cfg.Sync.DeviceURL, cfg.Sync.DeviceUser, cfg.Sync.DevicePass, logger), nil
	case config.SyncModeGateway:
		return NewGatewaySyncer(cfg.Sync.GatewayURL, logger), nil
	case config.SyncModeTemplate:
		return NewTemplateSyncer(cfg.Sync.TemplateURL, logger), nil
	default:
		return nil, fmt.Errorf("sync: unknown mode %q", cfg.Sync.Mode)
	}
}
