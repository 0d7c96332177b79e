package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrStorageUnconfigured indicates storage credentials are missing.
var ErrStorageUnconfigured = errors.New("storage: base url or service role not configured")

// ErrStorageUpload wraps a non-2xx response from the object store. Upload
// failures are hard failures: the photo record logically depends on the
// object existing.
var ErrStorageUpload = errors.New("storage: upload failed")

const (
	storageUploadTimeout = 30 * time.Second
	storageSignTimeout   = 10 * time.Second
)

// StorageClient uploads evidence photos to a Supabase-style object store and
// builds public/signed URLs for them.
type StorageClient struct {
	baseURL     string
	serviceRole string
	bucket      string
	client      HTTPDoer
}

// NewStorageClient builds the object storage client.
func NewStorageClient(baseURL, serviceRole, bucket string) *StorageClient {
	return &StorageClient{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		serviceRole: strings.TrimSpace(serviceRole),
		bucket:      bucket,
		client:      NewDefaultHTTPClient(storageUploadTimeout),
	}
}

// Configured reports whether uploads can be attempted.
func (c *StorageClient) Configured() bool {
	return c.baseURL != "" && c.serviceRole != ""
}

// Upload stores bytes under objectPath, overwriting any existing object.
func (c *StorageClient) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	if !c.Configured() {
		return ErrStorageUnconfigured
	}
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceRole)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUpload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrStorageUpload, resp.StatusCode, string(body))
	}
	return nil
}

// PublicURL returns the public object URL for a stored path.
func (c *StorageClient) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectPath)
}

// SignedURL asks the store for a time-limited URL. Best effort: any failure
// returns empty.
func (c *StorageClient) SignedURL(ctx context.Context, objectPath string, expiresIn time.Duration) string {
	if !c.Configured() {
		return ""
	}
	api := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.baseURL, c.bucket, objectPath)
	payload, _ := json.Marshal(map[string]int{"expiresIn": int(expiresIn.Seconds())})

	ctx, cancel := context.WithTimeout(ctx, storageSignTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api, bytes.NewReader(payload))
	if err != nil {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceRole)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return ""
	}

	var out struct {
		SignedURL  string `json:"signedURL"`
		SignedURL2 string `json:"signedUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ""
	}
	signed := out.SignedURL
	if signed == "" {
		signed = out.SignedURL2
	}
	if signed == "" {
		return ""
	}
	if strings.HasPrefix(signed, "http") {
		return signed
	}
	return c.baseURL + signed
}
