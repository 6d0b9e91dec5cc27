package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnav/capsera/internal/domain"
	"gorm.io/gorm"
)

// CaptionRepository handles caption ledger operations.
type CaptionRepository struct {
	db *gorm.DB
}

// NewCaptionRepository creates a new CaptionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CaptionRepository: repository instance bound to db.
func NewCaptionRepository(db *gorm.DB) *CaptionRepository {
	return &CaptionRepository{db: db}
}

// Create inserts a new caption record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - caption: record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *CaptionRepository) Create(ctx context.Context, caption *domain.Caption) error {
	return r.db.WithContext(ctx).Create(caption).Error
}

// GetByID retrieves a caption by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: caption ID.
// Returns:
//   - *domain.Caption: record if found, nil when no row matches.
//   - error: non-nil if lookup fails.
func (r *CaptionRepository) GetByID(ctx context.Context, id string) (*domain.Caption, error) {
	var caption domain.Caption
	err := r.db.WithContext(ctx).First(&caption, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &caption, nil
}

// ListByUser retrieves a user's captions, newest first, with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owner of the records.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Caption: matching records.
//   - error: non-nil if the query fails.
func (r *CaptionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Caption, error) {
	var captions []domain.Caption
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&captions).Error; err != nil {
		return nil, err
	}
	return captions, nil
}

// CountByUser counts all records owned by a user.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owner of the records.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *CaptionRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Caption{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByUserBetween counts a user's records in [start, end).
// This is the quota ledger query: daily usage is always derived from it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owner of the records.
//   - start: window start, inclusive.
//   - end: window end, exclusive.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *CaptionRepository) CountByUserBetween(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Caption{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DailyCounts returns per-calendar-day record counts for a user since a
// starting instant, oldest day first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owner of the records.
//   - since: earliest instant to include.
// Returns:
//   - []domain.DailyCount: one entry per day with at least one record.
//   - error: non-nil if the query fails.
func (r *CaptionRepository) DailyCounts(ctx context.Context, userID string, since time.Time) ([]domain.DailyCount, error) {
	var rows []struct {
		Day   string
		Total int
	}
	if err := r.db.WithContext(ctx).Model(&domain.Caption{}).
		Select("DATE(created_at) AS day, COUNT(*) AS total").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make([]domain.DailyCount, 0, len(rows))
	for _, row := range rows {
		day, err := parseDay(row.Day)
		if err != nil {
			return nil, fmt.Errorf("failed to parse day %q: %w", row.Day, err)
		}
		counts = append(counts, domain.DailyCount{Date: day, Count: row.Total})
	}
	return counts, nil
}

// parseDay normalizes a scanned DATE(created_at) value. sqlite returns the
// bare day; the postgres driver hands back a date value that database/sql
// renders as a full RFC3339 timestamp when scanned into a string.
func parseDay(raw string) (time.Time, error) {
	if len(raw) > 10 {
		raw = raw[:10]
	}
	return time.Parse("2006-01-02", raw)
}

// CountsPerUserBetween returns per-user record counts in [start, end).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - start: window start, inclusive.
//   - end: window end, exclusive.
// Returns:
//   - []domain.UserCount: one entry per user with at least one record.
//   - error: non-nil if the query fails.
func (r *CaptionRepository) CountsPerUserBetween(ctx context.Context, start, end time.Time) ([]domain.UserCount, error) {
	var rows []domain.UserCount
	if err := r.db.WithContext(ctx).Model(&domain.Caption{}).
		Select("user_id, COUNT(*) AS total").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByUser removes all records owned by a user.
// Deleting ledger rows is the only way to actually free used quota.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owner of the records.
// Returns:
//   - int64: number of deleted records.
//   - error: non-nil if the delete fails.
func (r *CaptionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&domain.Caption{}, "user_id = ?", userID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete removes a caption by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: caption ID to delete.
// Returns:
//   - error: non-nil if the delete fails.
func (r *CaptionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Caption{}, "id = ?", id).Error
}

// CountsPerMood returns record counts grouped by mood, busiest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.MoodCount: one entry per mood with at least one record.
//   - error: non-nil if the query fails.
func (r *CaptionRepository) CountsPerMood(ctx context.Context) ([]domain.MoodCount, error) {
	var rows []domain.MoodCount
	if err := r.db.WithContext(ctx).Model(&domain.Caption{}).
		Select("mood, COUNT(*) AS total").
		Group("mood").
		Order("total DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping verifies database connectivity for health checks.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil if the database is unreachable.
func (r *CaptionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
