package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cargadero/internal/clients"
)

// ErrGatewayUnconfigured indicates no gateway URL is set.
var ErrGatewayUnconfigured = errors.New("sync: gateway url not configured")

// GatewaySyncer relays the canonical credential payload to an automation
// gateway which owns the device conversation.
type GatewaySyncer struct {
	url    string
	client *clients.BaseClient
	logger *zap.Logger
}

// NewGatewaySyncer builds the relay transport.
func NewGatewaySyncer(gatewayURL string, logger *zap.Logger) *GatewaySyncer {
	return &GatewaySyncer{
		url:    strings.TrimSpace(gatewayURL),
		client: clients.NewBaseClient("", clients.NewDefaultHTTPClient(syncTimeout)),
		logger: logger,
	}
}

type gatewayPayload struct {
	Op Op `json:"op"`
	KeypadUser
}

// SyncCredential posts {op, employeeNo, name, password?, doorNos, validity}
// to the gateway.
func (s *GatewaySyncer) SyncCredential(ctx context.Context, op Op, user KeypadUser) (int, []byte, error) {
	if s.url == "" {
		return 0, nil, ErrGatewayUnconfigured
	}
	body, err := json.Marshal(gatewayPayload{Op: op, KeypadUser: user})
	if err != nil {
		return 0, nil, err
	}
	return s.client.Do(ctx, http.MethodPost, s.url, body, nil)
}

var _ Syncer = (*GatewaySyncer)(nil)
