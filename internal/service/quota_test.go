package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arnav/capsera/internal/domain"
	"github.com/arnav/capsera/internal/logger"
)

type fakeQuotaStore struct {
	count      int64
	countErr   error
	countCalls int
	lastStart  time.Time
	lastEnd    time.Time

	daily    []domain.DailyCount
	dailyErr error

	perUser    []domain.UserCount
	perUserErr error

	deleted   int64
	deleteErr error
}

func (f *fakeQuotaStore) CountByUserBetween(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	f.countCalls++
	f.lastStart = start
	f.lastEnd = end
	return f.count, f.countErr
}

func (f *fakeQuotaStore) DailyCounts(ctx context.Context, userID string, since time.Time) ([]domain.DailyCount, error) {
	return f.daily, f.dailyErr
}

func (f *fakeQuotaStore) CountsPerUserBetween(ctx context.Context, start, end time.Time) ([]domain.UserCount, error) {
	return f.perUser, f.perUserErr
}

func (f *fakeQuotaStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return f.deleted, f.deleteErr
}

func newTestQuota(store CaptionStore, cfg *QuotaServiceConfig) *QuotaService {
	if cfg == nil {
		cfg = &QuotaServiceConfig{DailyLimit: 25}
	}
	return NewQuotaService(store, cfg, logger.New(nil))
}

func TestCanMakeRequestUsageBoundaries(t *testing.T) {
	tests := []struct {
		name          string
		used          int64
		wantAllowed   bool
		wantRemaining int
	}{
		{"unused", 0, true, 25},
		{"one below limit", 24, true, 1},
		{"at limit", 25, false, 0},
		{"over limit", 30, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeQuotaStore{count: tt.used}
			svc := newTestQuota(store, nil)

			decision, err := svc.CanMakeRequest(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decision.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", decision.Allowed, tt.wantAllowed)
			}
			if decision.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", decision.Remaining, tt.wantRemaining)
			}
			if decision.Used != int(tt.used) {
				t.Errorf("Used = %d, want %d", decision.Used, tt.used)
			}
		})
	}
}

func TestCanMakeRequestWhitelistSkipsStore(t *testing.T) {
	store := &fakeQuotaStore{count: 99}
	svc := newTestQuota(store, &QuotaServiceConfig{DailyLimit: 25, Whitelist: []string{"vip"}})

	decision, err := svc.CanMakeRequest(context.Background(), "vip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed || !decision.Whitelisted {
		t.Errorf("whitelisted user should be admitted, got %+v", decision)
	}
	if decision.Remaining != UnlimitedRemaining {
		t.Errorf("Remaining = %d, want %d", decision.Remaining, UnlimitedRemaining)
	}
	if store.countCalls != 0 {
		t.Errorf("whitelist check hit the store %d times", store.countCalls)
	}
}

func TestCanMakeRequestFailOpen(t *testing.T) {
	store := &fakeQuotaStore{countErr: errors.New("db down")}
	svc := newTestQuota(store, &QuotaServiceConfig{DailyLimit: 25, FailOpen: true})

	decision, err := svc.CanMakeRequest(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("fail-open should swallow store errors, got %v", err)
	}
	if !decision.Allowed {
		t.Error("fail-open should admit the request")
	}
	if decision.Remaining != 25 {
		t.Errorf("Remaining = %d, want full limit on fail-open", decision.Remaining)
	}
}

func TestCanMakeRequestFailClosed(t *testing.T) {
	store := &fakeQuotaStore{countErr: errors.New("db down")}
	svc := newTestQuota(store, &QuotaServiceConfig{DailyLimit: 25, FailOpen: false})

	if _, err := svc.CanMakeRequest(context.Background(), "user-1"); err == nil {
		t.Error("expected error when fail-open is disabled")
	}
}

func TestGetUserStatusPercentage(t *testing.T) {
	store := &fakeQuotaStore{count: 20}
	svc := newTestQuota(store, nil)

	status, err := svc.GetUserStatus(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.PercentageUsed != 80 {
		t.Errorf("PercentageUsed = %d, want 80", status.PercentageUsed)
	}
	if status.IsLimited {
		t.Error("user below the limit should not be limited")
	}
	if status.Remaining != 5 {
		t.Errorf("Remaining = %d, want 5", status.Remaining)
	}
}

func TestIsApproachingLimit(t *testing.T) {
	tests := []struct {
		name string
		used int64
		want bool
	}{
		{"well below", 10, false},
		{"just below threshold", 19, false},
		{"at threshold", 20, true},
		{"at limit", 25, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestQuota(&fakeQuotaStore{count: tt.used}, nil)
			got, err := svc.IsApproachingLimit(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsApproachingLimit with %d used = %v, want %v", tt.used, got, tt.want)
			}
		})
	}
}

func TestDayWindowBoundaries(t *testing.T) {
	store := &fakeQuotaStore{count: 0}
	svc := newTestQuota(store, &QuotaServiceConfig{DailyLimit: 25, UTCOffsetMinutes: 330})

	// One second before midnight in the +05:30 quota zone.
	loc := time.FixedZone("quota", 330*60)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 23, 59, 59, 0, loc)
	}

	if _, err := svc.CanMakeRequest(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStart := time.Date(2026, 3, 14, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 3, 15, 0, 0, 0, 0, loc)

	if !store.lastStart.Equal(wantStart) {
		t.Errorf("window start = %v, want %v", store.lastStart, wantStart)
	}
	if !store.lastEnd.Equal(wantEnd) {
		t.Errorf("window end = %v, want %v", store.lastEnd, wantEnd)
	}

	if d := svc.TimeUntilReset(); d != time.Second {
		t.Errorf("TimeUntilReset = %v, want 1s", d)
	}
}

func TestClearUserRecords(t *testing.T) {
	store := &fakeQuotaStore{deleted: 7}
	svc := newTestQuota(store, nil)

	deleted, err := svc.ClearUserRecords(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 7 {
		t.Errorf("deleted = %d, want 7", deleted)
	}
}

func TestClearThenCheckFreesQuota(t *testing.T) {
	store := &fakeQuotaStore{count: 25, deleted: 25}
	svc := newTestQuota(store, nil)

	before, err := svc.CanMakeRequest(context.Background(), "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before.Allowed {
		t.Fatal("user at limit should be blocked")
	}

	if _, err := svc.ClearUserRecords(context.Background(), "user-42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.count = 0 // ledger rows gone, derived usage follows

	after, err := svc.CanMakeRequest(context.Background(), "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !after.Allowed || after.Used != 0 {
		t.Errorf("after clear: Allowed=%v Used=%d, want admitted with 0 used", after.Allowed, after.Used)
	}
}

func TestWhitelistLifecycle(t *testing.T) {
	svc := newTestQuota(&fakeQuotaStore{}, nil)

	svc.AddToWhitelist("vip")
	if !svc.IsWhitelisted("vip") {
		t.Error("user should be whitelisted after add")
	}
	if got := svc.Whitelist(); len(got) != 1 || got[0] != "vip" {
		t.Errorf("Whitelist() = %v, want [vip]", got)
	}
	if !svc.RemoveFromWhitelist("vip") {
		t.Error("remove should report the user was present")
	}
	if svc.RemoveFromWhitelist("vip") {
		t.Error("second remove should report absence")
	}
	if svc.IsWhitelisted("vip") {
		t.Error("user should not be whitelisted after remove")
	}
}

func TestGetGlobalStats(t *testing.T) {
	store := &fakeQuotaStore{perUser: []domain.UserCount{
		{UserID: "a", Total: 25},
		{UserID: "b", Total: 10},
		{UserID: "c", Total: 5},
	}}
	svc := newTestQuota(store, nil)

	stats, err := svc.GetGlobalStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalUsers != 3 {
		t.Errorf("TotalUsers = %d, want 3", stats.TotalUsers)
	}
	if stats.TotalRequests != 40 {
		t.Errorf("TotalRequests = %d, want 40", stats.TotalRequests)
	}
	if stats.MaxRequestsByUser != 25 {
		t.Errorf("MaxRequestsByUser = %d, want 25", stats.MaxRequestsByUser)
	}
	if stats.UsersAtLimit != 1 {
		t.Errorf("UsersAtLimit = %d, want 1", stats.UsersAtLimit)
	}
	if stats.AverageRequestsPerUser < 13.3 || stats.AverageRequestsPerUser > 13.4 {
		t.Errorf("AverageRequestsPerUser = %f, want ~13.33", stats.AverageRequestsPerUser)
	}
}

func TestGetUserHistory(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeQuotaStore{daily: []domain.DailyCount{
		{Date: day, Count: 4},
		{Date: day.AddDate(0, 0, 1), Count: 9},
	}}
	svc := newTestQuota(store, nil)

	history, err := svc.GetUserHistory(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[1].Count != 9 {
		t.Errorf("second day count = %d, want 9", history[1].Count)
	}
}
