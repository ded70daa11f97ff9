package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"materials/internal/infra"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-3-pro-image-preview"
)

// ErrNoImage is returned when Gemini answers successfully but the response
// carries no inline image part.
var ErrNoImage = errors.New("genai: response contained no image")

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin wrapper over the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// Reference is an image passed to the model as conditioning input.
type Reference struct {
	Data     []byte
	MimeType string
}

// ImageRequest represents the information required to generate one image.
type ImageRequest struct {
	Prompt      string
	References  []Reference
	AspectRatio string
	Resolution  string
}

// ImageAsset is the decoded image returned by Gemini.
type ImageAsset struct {
	Data     []byte
	MimeType string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; one with a two minute timeout is created.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("genai: api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateImage sends the prompt and references to Gemini and returns the
// first inline image of the response.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parts := make([]geminiPart, 0, len(req.References)+1)
	parts = append(parts, geminiPart{Text: req.Prompt})
	for _, ref := range req.References {
		if len(ref.Data) == 0 {
			continue
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: firstNonEmpty(ref.MimeType, "image/png"),
			Data:     base64.StdEncoding.EncodeToString(ref.Data),
		}})
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	aspect := strings.TrimSpace(req.AspectRatio)
	size := strings.TrimSpace(req.Resolution)
	if aspect != "" || size != "" {
		payload.GenerationConfig.ImageConfig = &geminiImageConfig{AspectRatio: aspect, ImageSize: size}
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			if len(data) == 0 {
				continue
			}
			c.logger.Debug().
				Str("model", c.model).
				Int("bytes", len(data)).
				Int("references", len(req.References)).
				Msg("genai: generated image")
			return &ImageAsset{Data: data, MimeType: part.InlineData.MimeType}, nil
		}
	}

	return nil, ErrNoImage
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	// Header auth keeps the key out of *url.Error messages.
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
