package sync

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cargadero/internal/clients"
)

// ErrTemplateUnconfigured indicates no template URL is set.
var ErrTemplateUnconfigured = errors.New("sync: template url not configured")

// TemplateSyncer renders a configured GET URL with {{placeholder}}
// substitution. The escape hatch for controllers and relays that only accept
// an ad-hoc query API.
type TemplateSyncer struct {
	template string
	client   *clients.BaseClient
	logger   *zap.Logger
}

// NewTemplateSyncer builds the templated-GET transport.
func NewTemplateSyncer(templateURL string, logger *zap.Logger) *TemplateSyncer {
	return &TemplateSyncer{
		template: strings.TrimSpace(templateURL),
		client:   clients.NewBaseClient("", clients.NewDefaultHTTPClient(syncTimeout)),
		logger:   logger,
	}
}

// Render substitutes the credential fields into the URL template. Values are
// query-escaped.
func (s *TemplateSyncer) Render(op Op, user KeypadUser) string {
	doorNos := make([]string, 0, len(user.DoorNos))
	for _, d := range user.DoorNos {
		doorNos = append(doorNos, strconv.Itoa(d))
	}
	replacer := strings.NewReplacer(
		"{{op}}", url.QueryEscape(string(op)),
		"{{employeeNo}}", url.QueryEscape(user.EmployeeNo),
		"{{name}}", url.QueryEscape(user.Name),
		"{{password}}", url.QueryEscape(user.Password),
		"{{doorNos}}", url.QueryEscape(strings.Join(doorNos, ",")),
		"{{validFrom}}", url.QueryEscape(user.ValidFrom.Format("2006-01-02T15:04:05")),
		"{{validTo}}", url.QueryEscape(user.ValidTo.Format("2006-01-02T15:04:05")),
	)
	return replacer.Replace(s.template)
}

// SyncCredential performs the templated GET.
func (s *TemplateSyncer) SyncCredential(ctx context.Context, op Op, user KeypadUser) (int, []byte, error) {
	if s.template == "" {
		return 0, nil, ErrTemplateUnconfigured
	}
	return s.client.Do(ctx, http.MethodGet, s.Render(op, user), nil, nil)
}

var _ Syncer = (*TemplateSyncer)(nil)
