package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cargadero/internal/models"
	"cargadero/internal/repository"
)

var (
	// ErrPhotoTooSmall rejects empty or suspiciously small uploads.
	ErrPhotoTooSmall = errors.New("photo: file empty or too small")
	// ErrUnsupportedImage rejects non-image content types.
	ErrUnsupportedImage = errors.New("photo: unsupported content type")
)

// minPhotoBytes is the smallest upload accepted as a real camera frame.
const minPhotoBytes = 1000

const signedURLExpiry = 30 * 24 * time.Hour

// ObjectStore is the storage capability, satisfied by clients.StorageClient.
type ObjectStore interface {
	Configured() bool
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) error
	PublicURL(objectPath string) string
	SignedURL(ctx context.Context, objectPath string, expiresIn time.Duration) string
}

// SnapshotSource pulls frames from the station camera, satisfied by
// clients.CameraClient.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) ([]byte, string, error)
}

// PhotoService uploads evidence images and records their metadata.
type PhotoService struct {
	db         *sql.DB
	dispatches *repository.DispatchRepository
	photos     *repository.PhotoRepository
	store      ObjectStore
	camera     SnapshotSource
	prefix     string
	logger     *zap.Logger
}

// NewPhotoService builds the service. camera may be nil when no station
// camera is configured.
func NewPhotoService(
	db *sql.DB,
	dispatches *repository.DispatchRepository,
	photos *repository.PhotoRepository,
	store ObjectStore,
	camera SnapshotSource,
	prefix string,
	logger *zap.Logger,
) *PhotoService {
	if prefix == "" {
		prefix = "photos"
	}
	return &PhotoService{
		db:         db,
		dispatches: dispatches,
		photos:     photos,
		store:      store,
		camera:     camera,
		prefix:     prefix,
		logger:     logger,
	}
}

// BuildObjectPath produces {prefix}/disp_{id}/snap_{yyyyMMddTHHmmss}_{rand8}.{ext}.
// Paths stay sortable per dispatch and collision resistant across backends.
func BuildObjectPath(prefix string, dispatchID int64, ext string, ts time.Time, rand8 string) string {
	return fmt.Sprintf("%s/disp_%d/snap_%s_%s.%s", prefix, dispatchID, ts.UTC().Format("20060102T150405"), rand8, ext)
}

func randomSuffix() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:8]
}

// ExtForContentType maps an image content type to a file extension.
func ExtForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}

func validateImage(data []byte, contentType string) error {
	ct := strings.ToLower(contentType)
	switch ct {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	if len(data) < minPhotoBytes {
		return ErrPhotoTooSmall
	}
	return nil
}

// UploadStartSnapshot stores a pre-dispatch trigger image keyed by station
// instead of dispatch and returns the public URL. No photo row is written
// because the dispatch does not exist yet; the URL travels in
// dispatch.photo_path.
func (s *PhotoService) UploadStartSnapshot(ctx context.Context, stationID, suffix string, data []byte, contentType string) (string, error) {
	if err := validateImage(data, contentType); err != nil {
		return "", err
	}
	if suffix == "" {
		suffix = "start"
	}
	safeStation := strings.ReplaceAll(strings.ToUpper(stationID), " ", "_")
	objectPath := fmt.Sprintf("%s/dispatch_%s/%s_%d_%s.%s",
		s.prefix, safeStation, suffix, time.Now().Unix(), randomSuffix(), ExtForContentType(contentType))
	if err := s.store.Upload(ctx, objectPath, data, strings.ToLower(contentType)); err != nil {
		return "", err
	}
	return s.store.PublicURL(objectPath), nil
}

// PhotoResult is returned by all upload paths.
type PhotoResult struct {
	ID          int64           `json:"id"`
	DispatchID  int64           `json:"dispatch_id"`
	Ts          time.Time       `json:"ts"`
	CameraID    *string         `json:"camera_id"`
	StoragePath string          `json:"storage_path"`
	PublicURL   string          `json:"public_url"`
	SignedURL   string          `json:"signed_url,omitempty"`
	Meta        json.RawMessage `json:"meta,omitempty"`
}

// Upload validates and stores one multipart image for a dispatch and records
// the photo row. Storage failure aborts the request: the record depends on
// the object existing.
func (s *PhotoService) Upload(ctx context.Context, dispatchID int64, cameraID *string, rawMeta string, data []byte, contentType string) (*PhotoResult, error) {
	exists, err := s.dispatches.Exists(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrDispatchNotFound
	}

	if err := validateImage(data, contentType); err != nil {
		return nil, err
	}

	objectPath := BuildObjectPath(s.prefix, dispatchID, ExtForContentType(contentType), time.Now(), randomSuffix())
	if err := s.store.Upload(ctx, objectPath, data, strings.ToLower(contentType)); err != nil {
		return nil, err
	}

	photo := &models.Photo{
		DispatchID:  dispatchID,
		CameraID:    cameraID,
		StoragePath: objectPath,
		Meta:        parseMeta(rawMeta),
	}
	if err := s.photos.Insert(ctx, photo); err != nil {
		return nil, err
	}

	return s.result(ctx, photo), nil
}

// AttachTruckPhoto uploads the clearer evidence photo for an existing
// dispatch and points dispatch.photo_path at it, replacing any provisional
// controller snapshot URL. The path update and the photo row share one
// transaction; the storage upload stays outside it.
func (s *PhotoService) AttachTruckPhoto(ctx context.Context, dispatchID int64, cameraID *string, rawMeta string, data []byte, contentType string) (*PhotoResult, error) {
	if _, err := s.dispatches.Get(ctx, dispatchID); err != nil {
		return nil, err
	}

	if err := validateImage(data, contentType); err != nil {
		return nil, err
	}

	objectPath := BuildObjectPath(s.prefix, dispatchID, ExtForContentType(contentType), time.Now(), randomSuffix())
	if err := s.store.Upload(ctx, objectPath, data, strings.ToLower(contentType)); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	publicURL := s.store.PublicURL(objectPath)
	if err := s.dispatches.WithTx(tx).SetPhotoPath(ctx, dispatchID, publicURL); err != nil {
		return nil, err
	}

	photo := &models.Photo{
		DispatchID:  dispatchID,
		CameraID:    cameraID,
		StoragePath: objectPath,
		Meta:        parseMeta(rawMeta),
	}
	if err := s.photos.WithTx(tx).Insert(ctx, photo); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.result(ctx, photo), nil
}

// FetchFromCamera pulls a snapshot from the configured station camera and
// stores it like an upload.
func (s *PhotoService) FetchFromCamera(ctx context.Context, dispatchID int64, cameraID *string, rawMeta string) (*PhotoResult, error) {
	if s.camera == nil {
		return nil, errors.New("photo: camera not configured")
	}
	data, contentType, err := s.camera.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.Upload(ctx, dispatchID, cameraID, rawMeta, data, contentType)
}

func (s *PhotoService) result(ctx context.Context, photo *models.Photo) *PhotoResult {
	return &PhotoResult{
		ID:          photo.ID,
		DispatchID:  photo.DispatchID,
		Ts:          photo.Ts,
		CameraID:    photo.CameraID,
		StoragePath: photo.StoragePath,
		PublicURL:   s.store.PublicURL(photo.StoragePath),
		SignedURL:   s.store.SignedURL(ctx, photo.StoragePath, signedURLExpiry),
		Meta:        photo.Meta,
	}
}

// parseMeta keeps arbitrary JSON as-is and wraps anything else.
func parseMeta(raw string) []byte {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if json.Valid([]byte(raw)) {
		return []byte(raw)
	}
	wrapped, _ := json.Marshal(map[string]string{"_raw": raw})
	return wrapped
}
