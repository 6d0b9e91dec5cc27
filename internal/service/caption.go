package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/arnav/capsera/internal/domain"
	"github.com/arnav/capsera/internal/logger"
	"github.com/arnav/capsera/internal/storage"
	"github.com/google/uuid"
)

// maxInlineImageBytes caps how much of a stored object is inlined into a
// model request as base64.
const maxInlineImageBytes = 10 * 1024 * 1024

// VisionModel is the slice of the vision client the caption pipeline needs.
// Tests substitute a fake; production wires *VisionService.
type VisionModel interface {
	Generate(ctx context.Context, imageURL, mood string) (string, error)
	GenerateFromBytes(ctx context.Context, imageData []byte, format, mood string) (string, error)
	Rotate()
	Model() string
}

// CaptionRecordStore is the slice of the caption repository the pipeline
// needs for persistence and retrieval.
type CaptionRecordStore interface {
	Create(ctx context.Context, caption *domain.Caption) error
	GetByID(ctx context.Context, id string) (*domain.Caption, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Caption, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	CountsPerMood(ctx context.Context) ([]domain.MoodCount, error)
	Delete(ctx context.Context, id string) error
}

// CaptionService runs the full caption pipeline: call the vision model,
// mine the unstructured answer for captions, and fall back to templates
// when either step fails. The pipeline never returns a hard failure to the
// caller once a request is admitted; some set of three captions always
// comes back.
type CaptionService struct {
	vision  VisionModel
	repo    CaptionRecordStore
	storage storage.ObjectStorage
	log     *logger.Logger
}

// NewCaptionService creates a new caption service.
// Parameters:
//   - vision: vision model client.
//   - repo: caption record store.
//   - store: object storage holding uploaded images; nil disables inlining.
//   - log: logger instance.
// Returns:
//   - *CaptionService: initialized service.
func NewCaptionService(vision VisionModel, repo CaptionRecordStore, store storage.ObjectStorage, log *logger.Logger) *CaptionService {
	return &CaptionService{
		vision:  vision,
		repo:    repo,
		storage: store,
		log:     log.WithField(logger.FieldComponent, "caption_service"),
	}
}

// GenerateRequest carries everything the pipeline needs for one image.
type GenerateRequest struct {
	UserID     string
	Username   string
	Mood       string
	ImageURL   string
	ImageName  string
	StorageKey string
}

// Generate produces exactly three captions for the request's image and
// persists the attempt as a caption record. Model failures trigger one key
// rotation and retry; a second failure or an unusable answer degrades to
// deterministic templates instead of an error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: user, mood, and image reference for this attempt.
// Returns:
//   - *domain.CaptionResult: three captions plus their provenance.
//   - error: non-nil only when persisting the record fails.
func (s *CaptionService) Generate(ctx context.Context, req *GenerateRequest) (*domain.CaptionResult, error) {
	start := time.Now()
	log := s.log.WithFields(logger.Fields{
		logger.FieldUserID: req.UserID,
		logger.FieldMood:   req.Mood,
	})

	captions, source := s.produceCaptions(ctx, req, log)

	record := &domain.Caption{
		ID:         uuid.New().String(),
		UserID:     req.UserID,
		Username:   req.Username,
		ImageURL:   req.ImageURL,
		ImageName:  req.ImageName,
		ImageID:    uuid.New().String(),
		StorageKey: req.StorageKey,
		Mood:       req.Mood,
		Captions:   captions,
		Source:     source,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save caption record: %w", err)
	}

	log.WithFields(logger.Fields{
		logger.FieldImageID:    record.ImageID,
		logger.FieldStatus:     string(source),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("Caption generation completed")

	return &domain.CaptionResult{
		ID:       record.ID,
		ImageID:  record.ImageID,
		Captions: captions,
		Mood:     req.Mood,
		Source:   source,
	}, nil
}

// produceCaptions runs the model call with one rotate-and-retry, then the
// extraction tiers, degrading to templates at each failure point.
func (s *CaptionService) produceCaptions(ctx context.Context, req *GenerateRequest, log *logger.Logger) ([]string, domain.CaptionSource) {
	call := s.modelCall(ctx, req, log)

	raw, err := call()
	if err != nil {
		log.WithError(err).Warn("Vision call failed, rotating key and retrying")
		s.vision.Rotate()
		raw, err = call()
	}
	if err != nil {
		log.WithError(err).Error("Vision call failed after retry, using fallback captions")
		return FallbackCaptions(req.Mood, req.Username), domain.CaptionSourceTemplate
	}

	captions := ExtractCaptions(raw)
	if captions == nil {
		// Quality signal: the model answered but nothing mineable came out.
		log.WithField(logger.FieldSize, len(raw)).Warn("No captions extracted from model answer, using template captions")
		return TemplateCaptions(req.Mood, req.Username), domain.CaptionSourceTemplate
	}

	return captions, domain.CaptionSourceModel
}

// modelCall picks how the image reaches the model. When the image lives in
// our bucket it is downloaded and inlined as bytes, since the bucket may
// not be reachable from the model's side; otherwise the public URL is
// passed through.
func (s *CaptionService) modelCall(ctx context.Context, req *GenerateRequest, log *logger.Logger) func() (string, error) {
	if s.storage != nil && req.StorageKey != "" {
		data, err := s.fetchStoredImage(ctx, req.StorageKey)
		if err == nil {
			format := strings.TrimPrefix(filepath.Ext(req.StorageKey), ".")
			return func() (string, error) {
				return s.vision.GenerateFromBytes(ctx, data, format, req.Mood)
			}
		}
		log.WithError(err).Warn("Failed to read stored image, passing URL to model instead")
	}
	return func() (string, error) {
		return s.vision.Generate(ctx, req.ImageURL, req.Mood)
	}
}

func (s *CaptionService) fetchStoredImage(ctx context.Context, key string) ([]byte, error) {
	body, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxInlineImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInlineImageBytes {
		return nil, fmt.Errorf("stored image exceeds inline limit")
	}
	return data, nil
}

// History returns a user's caption records, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owner of the records.
//   - limit: page size.
//   - offset: page start.
// Returns:
//   - []domain.Caption: the page of records.
//   - int64: total record count for the user.
//   - error: non-nil if the query fails.
func (s *CaptionService) History(ctx context.Context, userID string, limit, offset int) ([]domain.Caption, int64, error) {
	records, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list captions: %w", err)
	}
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count captions: %w", err)
	}
	return records, total, nil
}

// MoodUsage returns how often each mood has been requested, busiest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.MoodCount: one entry per mood with recorded usage.
//   - error: non-nil if the query fails.
func (s *CaptionService) MoodUsage(ctx context.Context) ([]domain.MoodCount, error) {
	usage, err := s.repo.CountsPerMood(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate mood usage: %w", err)
	}
	return usage, nil
}

// Get returns a single caption record by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: record ID.
// Returns:
//   - *domain.Caption: the record, nil when not found.
//   - error: non-nil if the query fails.
func (s *CaptionService) Get(ctx context.Context, id string) (*domain.Caption, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes a caption record owned by the given user.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: record ID.
//   - userID: requesting user, must own the record.
// Returns:
//   - *domain.Caption: the deleted record.
//   - error: ErrNotOwner when owned by someone else, otherwise query errors.
func (s *CaptionService) Delete(ctx context.Context, id, userID string) (*domain.Caption, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	if record.UserID != userID {
		return nil, ErrNotOwner
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete caption: %w", err)
	}
	return record, nil
}

// ErrNotOwner is returned when a user tries to delete another user's record.
var ErrNotOwner = fmt.Errorf("caption record belongs to another user")
