package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/arnav/capsera/internal/prompts"
	"github.com/go-resty/resty/v2"
)

// VisionService calls an OpenAI-compatible vision model to describe an image
// and draft captions for it. It holds a rotating pool of API keys: a failed
// call advances the round-robin pointer so the retry (and later requests)
// use a different credential. Rotation is cooperative; concurrent rotations
// racing to the same or a different index are harmless.
type VisionService struct {
	client    *resty.Client
	model     string
	endpoint  string
	keys      []string
	keyIndex  atomic.Int64
	maxTokens int
}

// VisionServiceConfig holds configuration for the vision service.
type VisionServiceConfig struct {
	Model     string
	APIKeys   []string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// NewVisionService creates a new vision service.
// Parameters:
//   - cfg: model, key pool, endpoint, and limits.
// Returns:
//   - *VisionService: initialized client wrapper.
//   - error: non-nil when no API key is configured.
func NewVisionService(cfg *VisionServiceConfig) (*VisionService, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("no vision API keys configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	endpoint := strings.TrimSuffix(baseURL, "/") + "/chat/completions"

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}

	return &VisionService{
		client:    client,
		model:     cfg.Model,
		endpoint:  endpoint,
		keys:      cfg.APIKeys,
		maxTokens: maxTokens,
	}, nil
}

// Model returns the model name being used.
// Parameters: none.
// Returns:
//   - string: model identifier.
func (s *VisionService) Model() string {
	return s.model
}

// KeyCount returns the size of the configured key pool.
// Parameters: none.
// Returns:
//   - int: number of API keys.
func (s *VisionService) KeyCount() int {
	return len(s.keys)
}

// currentKey returns the key at the rotation pointer.
func (s *VisionService) currentKey() string {
	idx := s.keyIndex.Load()
	return s.keys[int(idx)%len(s.keys)]
}

// Rotate advances the round-robin key pointer.
// Parameters: none.
// Returns: none.
func (s *VisionService) Rotate() {
	s.keyIndex.Add(1)
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type chatTextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatImageContent struct {
	Type     string       `json:"type"`
	ImageURL chatImageURL `json:"image_url"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate asks the model for captions for an image reachable at a public
// URL, styled for the given mood.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageURL: publicly accessible image URL.
//   - mood: caller-chosen mood tag, embedded in the instruction.
// Returns:
//   - string: raw model answer text.
//   - error: non-nil if the API request fails.
func (s *VisionService) Generate(ctx context.Context, imageURL, mood string) (string, error) {
	return s.complete(ctx, imageURL, mood)
}

// GenerateFromBytes asks the model for captions for raw image bytes, sent as
// a base64 data URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageData: raw image bytes (jpg, png, webp, gif).
//   - format: image format extension.
//   - mood: caller-chosen mood tag.
// Returns:
//   - string: raw model answer text.
//   - error: non-nil if the API request fails.
func (s *VisionService) GenerateFromBytes(ctx context.Context, imageData []byte, format, mood string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeTypeFor(format), base64.StdEncoding.EncodeToString(imageData))
	return s.complete(ctx, dataURL, mood)
}

func (s *VisionService) complete(ctx context.Context, imageRef, mood string) (string, error) {
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: prompts.CaptionInstruction(mood),
			},
			{
				Role: "user",
				Content: []interface{}{
					chatTextContent{
						Type: "text",
						Text: "Analyze this image and create the captions.",
					},
					chatImageContent{
						Type: "image_url",
						ImageURL: chatImageURL{
							URL:    imageRef,
							Detail: "auto",
						},
					},
				},
			},
		},
		MaxTokens: s.maxTokens,
	}

	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.currentKey()).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call vision API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("vision API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("vision API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from vision API (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}

func mimeTypeFor(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
