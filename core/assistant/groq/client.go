package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-caddie/core/assistant"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel = "llama-3.3-70b-versatile"
)

// Client is a caddie assistant backed by Groq's structured output. Calls
// go through a circuit breaker so a failing API turns into fast misses.
type Client struct {
	apiKey  string
	model   string
	persona string
	url     string

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	maxFailures  uint32
	resetTimeout time.Duration
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithPersona(persona string) ClientOption {
	return func(c *Client) { c.persona = persona }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points the client at a different chat completions endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithCircuitBreaker opens the breaker after maxFailures consecutive
// failures and lets a probe through after resetTimeout.
func WithCircuitBreaker(maxFailures uint32, resetTimeout time.Duration) ClientOption {
	return func(c *Client) {
		if maxFailures > 0 {
			c.maxFailures = maxFailures
		}
		if resetTimeout > 0 {
			c.resetTimeout = resetTimeout
		}
	}
}

func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key not set")
	}

	c := &Client{
		apiKey:       apiKey,
		model:        DefaultModel,
		url:          defaultURL,
		httpClient:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		maxFailures:  3,
		resetTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "groq-assistant",
		MaxRequests: 1,
		Timeout:     c.resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("assistant circuit breaker state changed",
				"breaker", name, "from_state", from.String(), "to_state", to.String())
		},
		// the caller giving up says nothing about the API's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return c, nil
}

// Respond asks the model for the caddie's next reply. Any failure, including
// an open breaker, is returned as an error and leaves no trace on the
// request.
func (c *Client) Respond(ctx context.Context, req assistant.Request) (*assistant.Reply, error) {
	ctx, span := tracer.Start(ctx, "respond")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.Int("request.hole", req.Hole.HoleNumber),
		attribute.Int("request.messages", len(req.Round.Conversation)),
	)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.prompt(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	payload := result.(*assistant.ReplyPayload)
	reply, err := payload.Reply()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("response.cue", reply.Cue.String()))
	return &reply, nil
}

func (c *Client) prompt(ctx context.Context, req assistant.Request) (*assistant.ReplyPayload, error) {
	instructions, err := assistant.SystemPrompt(c.persona, req)
	if err != nil {
		return nil, fmt.Errorf("error rendering system prompt: %w", err)
	}

	reqBody := schemaRequestBody{
		Model:    c.model,
		Messages: toMessages(instructions, req.Round),
		ResponseFormat: &chatResponseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   replySchemaName,
				Schema: replySchema,
			},
		},
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Warn("assistant request failed", "status", resp.Status, "body", string(errorBody))
		return nil, fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	var responseBody schemaResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return nil, fmt.Errorf("error decoding response body: %w", err)
	}
	if len(responseBody.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}

	var payload assistant.ReplyPayload
	if err := json.Unmarshal([]byte(stripCodeFence(responseBody.Choices[0].Message.Content)), &payload); err != nil {
		return nil, fmt.Errorf("error unmarshalling reply: %w", err)
	}
	return &payload, nil
}

// stripCodeFence unwraps content a model put inside a markdown code block.
func stripCodeFence(content string) string {
	split := strings.Split(content, "```")
	if len(split) < 3 {
		return content
	}
	content = split[1]
	if newline := strings.IndexByte(content, '\n'); newline >= 0 && !strings.HasPrefix(strings.TrimSpace(content), "{") {
		content = content[newline+1:]
	}
	return strings.TrimSpace(content)
}

var (
	replySchema     = *(&jsonschema.Reflector{DoNotReference: true}).Reflect(&assistant.ReplyPayload{})
	replySchemaName = reflect.TypeOf(assistant.ReplyPayload{}).Name()
)

type schemaRequestBody struct {
	Model          string              `json:"model"`
	Messages       []message           `json:"messages"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Schema      jsonschema.Schema `json:"schema"`
	Strict      bool              `json:"strict"`
}

type schemaResponseBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}
