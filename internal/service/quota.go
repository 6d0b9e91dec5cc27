package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/arnav/capsera/internal/domain"
	"github.com/arnav/capsera/internal/logger"
)

// UnlimitedRemaining is the remaining-count sentinel reported for
// whitelisted users.
const UnlimitedRemaining = 999999

// approachingLimitThreshold is the usage fraction past which a user counts
// as approaching their daily limit.
const approachingLimitThreshold = 0.8

// CaptionStore is the slice of the caption repository the quota tracker
// needs. Usage is always derived by counting persisted records; there is no
// separate counter to drift out of sync.
type CaptionStore interface {
	CountByUserBetween(ctx context.Context, userID string, start, end time.Time) (int64, error)
	DailyCounts(ctx context.Context, userID string, since time.Time) ([]domain.DailyCount, error)
	CountsPerUserBetween(ctx context.Context, start, end time.Time) ([]domain.UserCount, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// QuotaService enforces the per-user daily request limit. Days roll over at
// midnight in a fixed, server-configured zone so every user sees the same
// reset instant regardless of host timezone.
type QuotaService struct {
	store    CaptionStore
	limit    int
	failOpen bool
	loc      *time.Location
	log      *logger.Logger

	mu        sync.RWMutex
	whitelist map[string]struct{}

	// now is swappable for tests.
	now func() time.Time
}

// QuotaServiceConfig holds configuration for the quota service.
type QuotaServiceConfig struct {
	DailyLimit       int
	FailOpen         bool
	UTCOffsetMinutes int
	Whitelist        []string
}

// NewQuotaService creates a new quota service.
// Parameters:
//   - store: caption record store used to derive usage.
//   - cfg: limit, failure policy, day-boundary zone, and initial whitelist.
//   - log: logger instance.
// Returns:
//   - *QuotaService: initialized service.
func NewQuotaService(store CaptionStore, cfg *QuotaServiceConfig, log *logger.Logger) *QuotaService {
	limit := cfg.DailyLimit
	if limit <= 0 {
		limit = 25
	}

	whitelist := make(map[string]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}

	return &QuotaService{
		store:     store,
		limit:     limit,
		failOpen:  cfg.FailOpen,
		loc:       time.FixedZone("quota", cfg.UTCOffsetMinutes*60),
		log:       log.WithField(logger.FieldComponent, "quota_service"),
		whitelist: whitelist,
		now:       time.Now,
	}
}

// dayWindow returns the current quota day as [start, end) plus the reset
// instant (which equals end).
func (s *QuotaService) dayWindow() (start, end time.Time) {
	now := s.now().In(s.loc)
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	end = start.AddDate(0, 0, 1)
	return start, end
}

// IsWhitelisted reports whether a user bypasses the daily limit.
// Parameters:
//   - userID: user to check.
// Returns:
//   - bool: true when whitelisted.
func (s *QuotaService) IsWhitelisted(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.whitelist[userID]
	return ok
}

// CanMakeRequest decides whether a user may make a request right now.
// Whitelisted users are admitted without touching the store. A store error
// admits the request when fail-open is configured, so a database hiccup
// degrades quota accuracy instead of taking the feature down.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: user to check.
// Returns:
//   - *domain.QuotaDecision: admission verdict with usage numbers.
//   - error: non-nil only when the store fails and fail-open is disabled.
func (s *QuotaService) CanMakeRequest(ctx context.Context, userID string) (*domain.QuotaDecision, error) {
	start, end := s.dayWindow()

	if s.IsWhitelisted(userID) {
		return &domain.QuotaDecision{
			Allowed:     true,
			Remaining:   UnlimitedRemaining,
			Limit:       s.limit,
			Used:        0,
			ResetAt:     end,
			Whitelisted: true,
		}, nil
	}

	used, err := s.store.CountByUserBetween(ctx, userID, start, end)
	if err != nil {
		if !s.failOpen {
			return nil, fmt.Errorf("failed to count quota usage: %w", err)
		}
		s.log.WithError(err).WithField(logger.FieldUserID, userID).
			Warn("Quota store unavailable, admitting request fail-open")
		return &domain.QuotaDecision{
			Allowed:   true,
			Remaining: s.limit,
			Limit:     s.limit,
			Used:      0,
			ResetAt:   end,
		}, nil
	}

	remaining := s.limit - int(used)
	if remaining < 0 {
		remaining = 0
	}

	return &domain.QuotaDecision{
		Allowed:   int(used) < s.limit,
		Remaining: remaining,
		Limit:     s.limit,
		Used:      int(used),
		ResetAt:   end,
	}, nil
}

// GetUserStatus returns a usage snapshot for a user without admitting
// anything.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: user to inspect.
// Returns:
//   - *domain.QuotaStatus: usage, percentage, and reset time.
//   - error: non-nil if the store fails.
func (s *QuotaService) GetUserStatus(ctx context.Context, userID string) (*domain.QuotaStatus, error) {
	start, end := s.dayWindow()

	if s.IsWhitelisted(userID) {
		return &domain.QuotaStatus{
			UserID:      userID,
			Used:        0,
			Remaining:   UnlimitedRemaining,
			Limit:       s.limit,
			ResetAt:     end,
			Whitelisted: true,
		}, nil
	}

	used, err := s.store.CountByUserBetween(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count quota usage: %w", err)
	}

	remaining := s.limit - int(used)
	if remaining < 0 {
		remaining = 0
	}

	return &domain.QuotaStatus{
		UserID:         userID,
		Used:           int(used),
		Remaining:      remaining,
		Limit:          s.limit,
		ResetAt:        end,
		PercentageUsed: int(math.Round(float64(used) / float64(s.limit) * 100)),
		IsLimited:      int(used) >= s.limit,
	}, nil
}

// GetUserHistory returns a user's per-day request counts over the last N
// days, oldest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: user to inspect.
//   - days: number of days to cover; values below 1 become 7.
// Returns:
//   - []domain.DailyCount: one entry per day with activity.
//   - error: non-nil if the store fails.
func (s *QuotaService) GetUserHistory(ctx context.Context, userID string, days int) ([]domain.DailyCount, error) {
	if days < 1 {
		days = 7
	}
	start, _ := s.dayWindow()
	since := start.AddDate(0, 0, -(days - 1))

	counts, err := s.store.DailyCounts(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage history: %w", err)
	}
	return counts, nil
}

// ResetUserLimit reports what a reset would mean for a user. Usage is
// derived from persisted records, so nothing is mutated here; freeing
// quota requires deleting records via ClearUserRecords.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: user in question.
// Returns:
//   - *domain.QuotaStatus: the user's current status.
//   - error: non-nil if the store fails.
func (s *QuotaService) ResetUserLimit(ctx context.Context, userID string) (*domain.QuotaStatus, error) {
	status, err := s.GetUserStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.log.WithField(logger.FieldUserID, userID).
		Info("Reset requested; usage is record-derived and rolls over automatically at day end")
	return status, nil
}

// ClearUserRecords deletes all of a user's caption records, which also
// zeroes their derived quota usage.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: user whose records are removed.
// Returns:
//   - int64: number of deleted records.
//   - error: non-nil if the delete fails.
func (s *QuotaService) ClearUserRecords(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear user records: %w", err)
	}
	s.log.WithFields(logger.Fields{
		logger.FieldUserID: userID,
		logger.FieldCount:  deleted,
	}).Info("Cleared user caption records")
	return deleted, nil
}

// AddToWhitelist exempts a user from the daily limit.
// Parameters:
//   - userID: user to exempt.
// Returns: none.
func (s *QuotaService) AddToWhitelist(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whitelist[userID] = struct{}{}
}

// RemoveFromWhitelist re-subjects a user to the daily limit.
// Parameters:
//   - userID: user to remove.
// Returns:
//   - bool: true when the user was whitelisted.
func (s *QuotaService) RemoveFromWhitelist(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.whitelist[userID]
	delete(s.whitelist, userID)
	return ok
}

// Whitelist returns the current whitelist entries.
// Parameters: none.
// Returns:
//   - []string: whitelisted user IDs.
func (s *QuotaService) Whitelist() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.whitelist))
	for id := range s.whitelist {
		ids = append(ids, id)
	}
	return ids
}

// GetGlobalStats aggregates today's usage across all users.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.GlobalStats: totals, average, max, and at-limit count.
//   - error: non-nil if the store fails.
func (s *QuotaService) GetGlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	start, end := s.dayWindow()

	rows, err := s.store.CountsPerUserBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	stats := &domain.GlobalStats{TotalUsers: len(rows)}
	for _, row := range rows {
		stats.TotalRequests += row.Total
		if row.Total > stats.MaxRequestsByUser {
			stats.MaxRequestsByUser = row.Total
		}
		if row.Total >= s.limit {
			stats.UsersAtLimit++
		}
	}
	if stats.TotalUsers > 0 {
		stats.AverageRequestsPerUser = float64(stats.TotalRequests) / float64(stats.TotalUsers)
	}
	return stats, nil
}

// IsApproachingLimit reports whether a user has used at least 80% of their
// daily quota. Whitelisted users never approach the limit.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: user to check.
// Returns:
//   - bool: true when usage is at or past the threshold.
//   - error: non-nil if the store fails.
func (s *QuotaService) IsApproachingLimit(ctx context.Context, userID string) (bool, error) {
	if s.IsWhitelisted(userID) {
		return false, nil
	}
	start, end := s.dayWindow()
	used, err := s.store.CountByUserBetween(ctx, userID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to count quota usage: %w", err)
	}
	return float64(used) >= float64(s.limit)*approachingLimitThreshold, nil
}

// TimeUntilReset returns how long until the current quota day ends.
// Parameters: none.
// Returns:
//   - time.Duration: time remaining in the day window.
func (s *QuotaService) TimeUntilReset() time.Duration {
	_, end := s.dayWindow()
	return end.Sub(s.now())
}

// FormatResetTime renders the time until reset as "Xh Ym".
// Parameters: none.
// Returns:
//   - string: human-readable countdown.
func (s *QuotaService) FormatResetTime() string {
	d := s.TimeUntilReset()
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// Limit returns the configured daily limit.
// Parameters: none.
// Returns:
//   - int: request limit per day.
func (s *QuotaService) Limit() int {
	return s.limit
}
