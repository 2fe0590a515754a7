package reasoning

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	defaultModel             = "gpt-4o-mini"
	defaultSearchModel       = "gpt-4o-mini-search-preview"
	defaultTimeout           = 30 * time.Second
	defaultRequestsPerMinute = 60
)

// Config holds reasoning service configuration
type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	SearchModel        string
	Timeout            time.Duration
	RequestsPerMinute  int
	EnableDebugLogging bool
}

// Client talks to an OpenAI-compatible chat completion API. Every answer is
// checked against a JSON schema before it is decoded.
type Client struct {
	client      *openai.Client
	model       string
	searchModel string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	debug       bool

	extractionSchema   *jsonschema.Schema
	adjudicationSchema *jsonschema.Schema
	searchSchema       *jsonschema.Schema
}

// NewClient creates a reasoning client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: reasoning api key is required", domain.ErrInvalidRequest)
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.SearchModel == "" {
		config.SearchModel = defaultSearchModel
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaultRequestsPerMinute
	}

	oc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: config.Timeout + 5*time.Second}

	burst := config.RequestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       config.Model,
		searchModel: config.SearchModel,
		timeout:     config.Timeout,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), burst),
		debug:       config.EnableDebugLogging,
	}

	var err error
	if c.extractionSchema, err = loadSchema("schemas/extraction.schema.json"); err != nil {
		return nil, err
	}
	if c.adjudicationSchema, err = loadSchema("schemas/adjudication.schema.json"); err != nil {
		return nil, err
	}
	if c.searchSchema, err = loadSchema("schemas/search.schema.json"); err != nil {
		return nil, err
	}
	return c, nil
}

func loadSchema(name string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

func (c *Client) debugLog(format string, args ...any) {
	if c.debug {
		log.Printf("[REASONING] "+format, args...)
	}
}

// complete sends one system+user exchange and returns the raw answer text
func (c *Client) complete(ctx context.Context, model, system, user string, jsonMode bool) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrReasoningFailure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonMode {
		req.Temperature = 0
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %w", domain.ErrReasoningFailure, domain.ErrRateLimited)
		}
		log.Printf("[REASONING] %s call failed: %v", model, err)
		return "", fmt.Errorf("%w: %v", domain.ErrReasoningFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrMalformedResponse)
	}

	c.debugLog("%s answered in %s (finish=%s, tokens=%d)",
		model, time.Since(start).Round(time.Millisecond), resp.Choices[0].FinishReason, resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

// cleanJSON strips markdown fences and any prose around the outermost object
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}

// validated cleans the answer and checks it against schema
func validated(schema *jsonschema.Schema, raw string) ([]byte, error) {
	data := []byte(cleanJSON(raw))
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: answer is not JSON", domain.ErrMalformedResponse)
	}
	result := schema.ValidateJSON(data)
	if !result.IsValid() {
		return nil, fmt.Errorf("%w: schema validation failed: %v", domain.ErrMalformedResponse, result.Errors)
	}
	return data, nil
}
