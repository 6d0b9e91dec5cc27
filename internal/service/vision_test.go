package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestVision(t *testing.T, keys []string, baseURL string) *VisionService {
	t.Helper()
	svc, err := NewVisionService(&VisionServiceConfig{
		Model:   "test-model",
		APIKeys: keys,
		BaseURL: baseURL,
	})
	if err != nil {
		t.Fatalf("failed to build vision service: %v", err)
	}
	return svc
}

func TestNewVisionServiceRequiresKeys(t *testing.T) {
	_, err := NewVisionService(&VisionServiceConfig{Model: "m"})
	if err == nil {
		t.Fatal("expected error when no API keys are configured")
	}
}

func TestVisionKeyRotationWrapsAround(t *testing.T) {
	svc := newTestVision(t, []string{"key-a", "key-b", "key-c"}, "")

	want := []string{"key-a", "key-b", "key-c", "key-a", "key-b"}
	for i, w := range want {
		if got := svc.currentKey(); got != w {
			t.Fatalf("rotation step %d: currentKey() = %q, want %q", i, got, w)
		}
		svc.Rotate()
	}

	if svc.KeyCount() != 3 {
		t.Errorf("KeyCount() = %d, want 3", svc.KeyCount())
	}
}

func TestVisionSingleKeyRotationIsStable(t *testing.T) {
	svc := newTestVision(t, []string{"only-key"}, "")

	svc.Rotate()
	svc.Rotate()
	if got := svc.currentKey(); got != "only-key" {
		t.Errorf("currentKey() after rotations = %q, want only-key", got)
	}
}

func TestVisionEndpointAssembly(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"default", "", "https://api.openai.com/v1/chat/completions"},
		{"trailing slash trimmed", "https://gen.example.com/v1beta/openai/", "https://gen.example.com/v1beta/openai/chat/completions"},
		{"no trailing slash", "https://gen.example.com/v1beta/openai", "https://gen.example.com/v1beta/openai/chat/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestVision(t, []string{"k"}, tt.baseURL)
			if svc.endpoint != tt.want {
				t.Errorf("endpoint = %q, want %q", svc.endpoint, tt.want)
			}
		})
	}
}

func TestVisionGenerateSendsCurrentKeyAndPrompt(t *testing.T) {
	var authHeaders []string
	var lastBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		if err := json.NewDecoder(r.Body).Decode(&lastBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"described"}}]}`))
	}))
	defer server.Close()

	svc := newTestVision(t, []string{"key-a", "key-b"}, server.URL)

	raw, err := svc.Generate(context.Background(), "https://cdn.test/img.jpg", "😜 Fun / Playful")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != "described" {
		t.Errorf("Generate() = %q, want described", raw)
	}

	svc.Rotate()
	if _, err := svc.Generate(context.Background(), "https://cdn.test/img.jpg", "calm"); err != nil {
		t.Fatalf("unexpected error after rotation: %v", err)
	}

	if len(authHeaders) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(authHeaders))
	}
	if authHeaders[0] != "Bearer key-a" {
		t.Errorf("first request used %q, want Bearer key-a", authHeaders[0])
	}
	if authHeaders[1] != "Bearer key-b" {
		t.Errorf("rotated request used %q, want Bearer key-b", authHeaders[1])
	}

	// System message must carry the mood-parameterized instruction.
	messages, ok := lastBody["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("unexpected messages payload: %v", lastBody["messages"])
	}
	system, ok := messages[0].(map[string]interface{})
	if !ok || system["role"] != "system" {
		t.Fatalf("first message is not the system instruction: %v", messages[0])
	}
	if content, _ := system["content"].(string); !strings.Contains(content, "calm") {
		t.Errorf("system instruction does not embed the mood: %q", content)
	}
	if lastBody["model"] != "test-model" {
		t.Errorf("model = %v, want test-model", lastBody["model"])
	}
}

func TestVisionGenerateSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exhausted","type":"rate_limit"}}`))
	}))
	defer server.Close()

	svc := newTestVision(t, []string{"k"}, server.URL)

	_, err := svc.Generate(context.Background(), "https://cdn.test/img.jpg", "calm")
	if err == nil {
		t.Fatal("expected error on non-2xx response")
	}
	if !strings.Contains(err.Error(), "quota exhausted") {
		t.Errorf("error should carry the API message, got %v", err)
	}
}

func TestMimeTypeFor(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"jpg", "image/jpeg"},
		{"JPEG", "image/jpeg"},
		{"png", "image/png"},
		{"gif", "image/gif"},
		{"webp", "image/webp"},
		{"bmp", "image/jpeg"},
	}

	for _, tt := range tests {
		if got := mimeTypeFor(tt.format); got != tt.want {
			t.Errorf("mimeTypeFor(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
