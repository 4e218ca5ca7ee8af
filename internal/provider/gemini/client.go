// Package gemini streams turns from the Gemini generateContent API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/provider"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultBaseURL is used when a station leaves api_base empty.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Client implements provider.Client for Gemini.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// New creates a client. A nil httpClient uses http.DefaultClient.
func New(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", provider.ErrMissingAPIKey)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}, nil
}

// Stream opens a streamGenerateContent request with SSE framing.
func (c *Client) Stream(ctx context.Context, req *provider.Request) (*provider.Stream, error) {
	body, err := BuildBody(req)
	if err != nil {
		return nil, &provider.ProviderError{Code: provider.ErrorCodeInvalidRequest, Message: "encoding request", Underlying: err}
	}

	c.logger.Debug("gemini stream request",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tools", len(req.Tools)))

	h := http.Header{}
	h.Set("x-goog-api-key", c.apiKey)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, url.PathEscape(req.Model))

	rc, err := provider.PostStream(ctx, c.httpClient, endpoint, h, body)
	if err != nil {
		c.logger.Warn("gemini request failed", zap.Error(err))
		return nil, err
	}
	return &provider.Stream{Body: rc, Mapper: NewMapper()}, nil
}

// generateRequest is the REST body of generateContent. The genai types
// carry the API's JSON field names.
type generateRequest struct {
	Contents          []*genai.Content        `json:"contents"`
	SystemInstruction *genai.Content          `json:"systemInstruction,omitempty"`
	Tools             []*genai.Tool           `json:"tools,omitempty"`
	SafetySettings    []*genai.SafetySetting  `json:"safetySettings,omitempty"`
	GenerationConfig  *genai.GenerationConfig `json:"generationConfig,omitempty"`
}

// BuildBody encodes req as a generateContent request body.
func BuildBody(req *provider.Request) ([]byte, error) {
	body := generateRequest{
		Contents:       toContents(req.Messages),
		Tools:          toTools(req.Tools),
		SafetySettings: defaultSafetySettings(),
	}
	if req.System != "" {
		body.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(req.System)}}
	}
	if req.MaxTokens > 0 || req.Temperature != nil {
		gc := &genai.GenerationConfig{}
		if req.MaxTokens > 0 {
			gc.MaxOutputTokens = int32(req.MaxTokens)
		}
		if req.Temperature != nil {
			t := float32(*req.Temperature)
			gc.Temperature = &t
		}
		body.GenerationConfig = gc
	}
	return json.Marshal(body)
}
