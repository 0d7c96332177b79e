package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrPLCUnconfigured indicates no PLC base URL is set.
var ErrPLCUnconfigured = errors.New("plc: base url not configured")

// PLCClient drives the digital outputs of the station controller over its
// native HTTP interface. All calls are fire-and-forget from the callers'
// point of view; physical actuation and bookkeeping may diverge under fault.
type PLCClient struct {
	base    *BaseClient
	enabled bool
	logger  *zap.Logger
}

// NewPLCClient builds a client for the PLC HTTP interface. An empty base URL
// yields a disabled client whose SetOutput returns ErrPLCUnconfigured.
func NewPLCClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PLCClient {
	baseURL = strings.TrimSpace(baseURL)
	return &PLCClient{
		base:    NewBaseClient(baseURL, NewDefaultHTTPClient(timeout)),
		enabled: baseURL != "",
		logger:  logger,
	}
}

// Enabled reports whether a PLC base URL is configured.
func (c *PLCClient) Enabled() bool {
	return c.enabled
}

// SetOutput sets one digital output channel.
func (c *PLCClient) SetOutput(ctx context.Context, ch, status int) error {
	if !c.enabled {
		return ErrPLCUnconfigured
	}
	path := fmt.Sprintf("/api/do?ch=%d&status=%d", ch, status)
	_, _, err := c.base.Do(ctx, http.MethodGet, path, nil, nil)
	return err
}

// TrySetOutput sets a digital output, swallowing any failure.
func (c *PLCClient) TrySetOutput(ctx context.Context, ch, status int) {
	if !c.enabled {
		return
	}
	if err := c.SetOutput(ctx, ch, status); err != nil {
		c.logger.Warn("plc output command failed",
			zap.Int("ch", ch),
			zap.Int("status", status),
			zap.Error(err))
	}
}
