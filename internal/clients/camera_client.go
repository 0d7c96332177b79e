package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrCameraUnconfigured indicates no snapshot URL is set.
var ErrCameraUnconfigured = errors.New("camera: snapshot url not configured")

// ErrCameraFetch wraps a failed snapshot download.
var ErrCameraFetch = errors.New("camera: snapshot fetch failed")

const cameraFetchTimeout = 30 * time.Second

// CameraClient pulls snapshots from the station camera over HTTP with
// optional basic auth.
type CameraClient struct {
	snapshotURL string
	user        string
	password    string
	client      HTTPDoer
}

// NewCameraClient builds the snapshot client from configuration.
func NewCameraClient(snapshotURL, user, password string) *CameraClient {
	return &CameraClient{
		snapshotURL: strings.TrimSpace(snapshotURL),
		user:        user,
		password:    password,
		client:      NewDefaultHTTPClient(cameraFetchTimeout),
	}
}

// FetchSnapshot downloads one image, returning bytes and content type.
func (c *CameraClient) FetchSnapshot(ctx context.Context) ([]byte, string, error) {
	if c.snapshotURL == "" {
		return nil, "", ErrCameraUnconfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.snapshotURL, nil)
	if err != nil {
		return nil, "", err
	}
	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCameraFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("%w: status %d", ErrCameraFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCameraFetch, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty snapshot", ErrCameraFetch)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
