// Package anthropic streams turns from the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is used when a station leaves api_base empty.
	DefaultBaseURL = "https://api.anthropic.com"
	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"

	defaultMaxTokens = 8192
)

// Client implements provider.Client for Anthropic.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// New creates a client. A nil httpClient uses http.DefaultClient.
func New(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", provider.ErrMissingAPIKey)
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

// Stream opens a streamed Messages request.
func (c *Client) Stream(ctx context.Context, req *provider.Request) (*provider.Stream, error) {
	body, err := BuildBody(req)
	if err != nil {
		return nil, &provider.ProviderError{Code: provider.ErrorCodeInvalidRequest, Message: "encoding request", Underlying: err}
	}

	c.logger.Debug("anthropic stream request",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tools", len(req.Tools)))

	h := http.Header{}
	h.Set("x-api-key", c.apiKey)
	h.Set("anthropic-version", APIVersion)

	rc, err := provider.PostStream(ctx, c.httpClient, c.baseURL+"/v1/messages", h, body)
	if err != nil {
		c.logger.Warn("anthropic request failed", zap.Error(err))
		return nil, err
	}
	return &provider.Stream{Body: rc, Mapper: NewMapper()}, nil
}

// BuildBody encodes req as a streaming Messages request body.
func BuildBody(req *provider.Request) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  convertMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "stream", true)
}

func convertMessages(msgs []provider.Message) []sdk.MessageParam {
	wire := provider.Fold(msgs)
	out := make([]sdk.MessageParam, 0, len(wire))
	for _, w := range wire {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(w.Content))
		for _, b := range w.Content {
			switch b := b.(type) {
			case provider.Text:
				// Empty text blocks are rejected by the API.
				if b.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(b.Text))
				}
			case provider.ToolCall:
				input := b.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, sdk.NewToolUseBlock(b.ID, input, b.Name))
			case provider.ToolResult:
				blocks = append(blocks, sdk.NewToolResultBlock(b.ToolCallID, b.ResultContent(), b.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if w.Role == provider.RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(blocks...))
		} else {
			out = append(out, sdk.NewUserMessage(blocks...))
		}
	}
	return out
}

func convertTools(decls []tool.Declaration) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, len(decls))
	for i, d := range decls {
		schema := sdk.ToolInputSchemaParam{}
		if d.Parameters != nil {
			schema.Properties = d.Parameters.Properties
			if len(d.Parameters.Required) > 0 {
				schema.Required = d.Parameters.Required
			}
		}
		out[i] = sdk.ToolUnionParamOfTool(schema, d.Name)
		if d.Description != "" {
			out[i].OfTool.Description = sdk.String(d.Description)
		}
	}
	return out
}
