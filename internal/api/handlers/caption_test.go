package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arnav/capsera/internal/domain"
	"github.com/arnav/capsera/internal/logger"
	"github.com/arnav/capsera/internal/service"
	"github.com/gin-gonic/gin"
)

type stubVision struct {
	response string
	err      error
}

func (s *stubVision) Generate(ctx context.Context, imageURL, mood string) (string, error) {
	return s.response, s.err
}

func (s *stubVision) GenerateFromBytes(ctx context.Context, imageData []byte, format, mood string) (string, error) {
	return s.response, s.err
}

func (s *stubVision) Rotate() {}

func (s *stubVision) Model() string { return "stub" }

type stubRecordStore struct {
	created    []*domain.Caption
	moodCounts []domain.MoodCount
}

func (s *stubRecordStore) Create(ctx context.Context, caption *domain.Caption) error {
	s.created = append(s.created, caption)
	return nil
}

func (s *stubRecordStore) GetByID(ctx context.Context, id string) (*domain.Caption, error) {
	return nil, nil
}

func (s *stubRecordStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Caption, error) {
	return nil, nil
}

func (s *stubRecordStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (s *stubRecordStore) CountsPerMood(ctx context.Context) ([]domain.MoodCount, error) {
	return s.moodCounts, nil
}

func (s *stubRecordStore) Delete(ctx context.Context, id string) error { return nil }

type stubQuotaStore struct {
	count int64
}

func (s *stubQuotaStore) CountByUserBetween(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	return s.count, nil
}

func (s *stubQuotaStore) DailyCounts(ctx context.Context, userID string, since time.Time) ([]domain.DailyCount, error) {
	return nil, nil
}

func (s *stubQuotaStore) CountsPerUserBetween(ctx context.Context, start, end time.Time) ([]domain.UserCount, error) {
	return nil, nil
}

func (s *stubQuotaStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

type stubStorage struct{}

func (stubStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	return nil
}

func (stubStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, nil
}

func (stubStorage) GetURL(key string) string { return "https://cdn.example.com/" + key }

func (stubStorage) Delete(ctx context.Context, key string) error { return nil }

func (stubStorage) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

const stubModelAnswer = "**STEP 3: CAPTIONS**\n```json\n" +
	`["Golden hour glow hitting different today over the skyline", "Chasing light and good vibes all evening long in the city", "Sky said main character energy tonight and we listened"]` +
	"\n```"

func newTestRouter(vision service.VisionModel, quotaUsed int64) (*gin.Engine, *stubRecordStore) {
	gin.SetMode(gin.TestMode)
	log := logger.New(nil)

	records := &stubRecordStore{}
	captionSvc := service.NewCaptionService(vision, records, stubStorage{}, log)
	quotaSvc := service.NewQuotaService(&stubQuotaStore{count: quotaUsed}, &service.QuotaServiceConfig{DailyLimit: 25}, log)
	h := NewCaptionHandler(captionSvc, quotaSvc, stubStorage{})

	router := gin.New()
	router.POST("/api/v1/captions/generate", h.Generate)
	router.GET("/api/v1/moods", h.Moods)
	return router, records
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(&stubVision{response: stubModelAnswer}, 0)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing userId", map[string]string{"mood": "fun", "imageUrl": "https://x.test/i.jpg"}},
		{"missing mood", map[string]string{"userId": "u1", "imageUrl": "https://x.test/i.jpg"}},
		{"missing imageUrl", map[string]string{"userId": "u1", "mood": "fun"}},
		{"non-http url", map[string]string{"userId": "u1", "mood": "fun", "imageUrl": "file:///etc/passwd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/api/v1/captions/generate", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGenerateEndpointSuccess(t *testing.T) {
	router, records := newTestRouter(&stubVision{response: stubModelAnswer}, 4)

	w := postJSON(t, router, "/api/v1/captions/generate", map[string]string{
		"userId":   "u1",
		"username": "arnav",
		"mood":     "😜 Fun / Playful",
		"imageUrl": "https://cdn.example.com/uploads/u1/img.jpg",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success   bool     `json:"success"`
		Captions  []string `json:"captions"`
		Source    string   `json:"source"`
		Remaining int      `json:"remaining"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if len(resp.Captions) != 3 {
		t.Errorf("captions = %d, want 3", len(resp.Captions))
	}
	if resp.Source != "model" {
		t.Errorf("source = %q, want model", resp.Source)
	}
	// 4 used of 25 leaves 21 before this request, 20 after.
	if resp.Remaining != 20 {
		t.Errorf("remaining = %d, want 20", resp.Remaining)
	}
	if len(records.created) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(records.created))
	}
}

func TestGenerateEndpointQuotaExceeded(t *testing.T) {
	router, records := newTestRouter(&stubVision{response: stubModelAnswer}, 25)

	w := postJSON(t, router, "/api/v1/captions/generate", map[string]string{
		"userId":   "u1",
		"mood":     "fun",
		"imageUrl": "https://cdn.example.com/i.jpg",
	})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if len(records.created) != 0 {
		t.Error("rejected request must not persist a record")
	}

	var resp struct {
		Limit     int `json:"limit"`
		Used      int `json:"used"`
		Remaining int `json:"remaining"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Limit != 25 || resp.Used != 25 || resp.Remaining != 0 {
		t.Errorf("unexpected quota payload: %+v", resp)
	}
}

func TestMoodsEndpoint(t *testing.T) {
	router, _ := newTestRouter(&stubVision{}, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/moods", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Core     []struct{ Name, Value string } `json:"core"`
		Seasonal []struct{ Name, Value string } `json:"seasonal"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Core) == 0 || len(resp.Seasonal) == 0 {
		t.Error("mood catalogues must not be empty")
	}
}
