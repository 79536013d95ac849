package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/observability"
	"github.com/noah-isme/course-registration-api/internal/repository"
)

var (
	// ErrUploadMissing indicates no file part was sent.
	ErrUploadMissing = errors.New("file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates files and hands them to storage.
type UploadService interface {
	Store(ctx context.Context, file *multipart.FileHeader, userID uint, kind models.UploadKind) (models.UploadRecord, error)
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/course-registration-api/internal/service/upload"),
	}
}

func (s *uploadService) Store(ctx context.Context, file *multipart.FileHeader, userID uint, kind models.UploadKind) (models.UploadRecord, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize), attribute.String("upload.kind", string(kind)))

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return models.UploadRecord{}, ErrUploadMissing
	}
	span.SetAttributes(attribute.Int64("upload.request_size", file.Size))

	if file.Size > s.maxSize {
		return models.UploadRecord{}, s.rejectUpload(span, "size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return models.UploadRecord{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return models.UploadRecord{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return models.UploadRecord{}, s.rejectUpload(span, "size", ErrUploadTooLarge)
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(fileType) {
		return models.UploadRecord{}, s.rejectUpload(span, "type", ErrUploadTypeNotAllowed)
	}

	if err := s.scan(buf.Bytes(), fileType); err != nil {
		return models.UploadRecord{}, s.rejectUpload(span, "scan", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	checksum := hex.EncodeToString(sum[:])
	existing, err := s.repo.FindByChecksum(ctx, userID, kind, checksum)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "deduplicated")
		s.logger.Debug().Uint("upload_id", existing.ID).Msg("identical upload reused")
		return existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return models.UploadRecord{}, err
	}

	sanitizedName := sanitizeFileName(file.Filename)
	storedName := fmt.Sprintf("%s/%s-%s", kind, uuid.NewString()[:8], sanitizedName)

	url, err := s.storage.Upload(ctx, storedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return models.UploadRecord{}, s.rejectUpload(span, "storage", err)
	}

	record := models.UploadRecord{
		UserID:    userID,
		Kind:      kind,
		FileName:  sanitizedName,
		URL:       url,
		MimeType:  fileType,
		SizeBytes: int64(buf.Len()),
		Checksum:  checksum,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return models.UploadRecord{}, err
	}

	span.SetStatus(codes.Ok, "stored")
	s.logger.Debug().Uint("upload_id", record.ID).Str("mime", fileType).Int64("size", record.SizeBytes).Msg("upload stored")
	return record, nil
}

func (s *uploadService) rejectUpload(span trace.Span, reason string, err error) error {
	observability.UploadRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	return err
}

func (s *uploadService) scan(payload []byte, mime string) error {
	if !isZipContainer(mime) {
		return nil
	}
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var totalUncompressed uint64
	for _, f := range reader.File {
		totalUncompressed += f.UncompressedSize64
		if totalUncompressed > uint64(s.maxSize*20) {
			return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "upload"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	if lower == "application/x-zip-compressed" {
		return "application/zip"
	}
	return lower
}

var allowedDocumentTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/zip":    {},
	"text/plain":         {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
}

func isAllowedType(m string) bool {
	if strings.HasPrefix(m, "image/") && m != "image/svg+xml" {
		return true
	}
	_, ok := allowedDocumentTypes[m]
	return ok
}

func isZipContainer(m string) bool {
	return m == "application/zip" || strings.HasPrefix(m, "application/vnd.openxmlformats-officedocument.")
}
