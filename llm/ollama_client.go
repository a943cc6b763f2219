package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SaiNageswarS/doqq/config"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaClient is the InferenceClient for a local Ollama server.
type OllamaClient struct {
	client    *api.Client
	endpoint  string
	keepAlive time.Duration
}

type clientSettings struct {
	httpClient *http.Client
	timeout    time.Duration
	keepAlive  time.Duration
}

type ClientOption func(*clientSettings)

// WithHTTPClient replaces the default http.Client. Its transport is still
// wrapped so that non-2xx statuses surface as NetworkError.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *clientSettings) { s.httpClient = c }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(s *clientSettings) { s.timeout = d }
}

// WithKeepAlive controls how long the server keeps the model loaded after a call.
func WithKeepAlive(d time.Duration) ClientOption {
	return func(s *clientSettings) { s.keepAlive = d }
}

// NewOllamaClient validates endpoint and builds a client for it. An invalid
// endpoint yields a *config.ConfigurationError.
func NewOllamaClient(endpoint string, opts ...ClientOption) (*OllamaClient, error) {
	base, err := config.ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	settings := clientSettings{
		timeout:   config.DefaultTimeout,
		keepAlive: config.DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	httpClient := &http.Client{Timeout: settings.timeout}
	if settings.httpClient != nil {
		copied := *settings.httpClient
		httpClient = &copied
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient.Transport = &statusTransport{base: transport}

	return &OllamaClient{
		client:    api.NewClient(base, httpClient),
		endpoint:  base.String(),
		keepAlive: settings.keepAlive,
	}, nil
}

func (c *OllamaClient) Endpoint() string {
	return c.endpoint
}

// Chat posts the full history to /api/chat with streaming disabled.
func (c *OllamaClient) Chat(ctx context.Context, model string, messages []Message) <-chan async.Result[*ChatResponse] {
	return async.Go(func() (*ChatResponse, error) {
		stream := false
		req := &api.ChatRequest{
			Model:     model,
			Messages:  toAPIMessages(messages),
			Stream:    &stream,
			KeepAlive: &api.Duration{Duration: c.keepAlive},
		}

		var (
			resp     api.ChatResponse
			received bool
		)
		err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
			resp = r
			received = true
			return nil
		})
		if err != nil {
			logger.Error("Chat request failed", zap.String("model", model), zap.Int("messages", len(messages)), zap.Error(err))
			return nil, classify("chat", err)
		}
		if !received {
			return nil, &DecodeError{Op: "chat", Err: ErrEmptyResponse}
		}

		return fromAPIChatResponse(resp), nil
	})
}

// ListModels fetches /api/tags.
func (c *OllamaClient) ListModels(ctx context.Context) <-chan async.Result[*ModelList] {
	return async.Go(func() (*ModelList, error) {
		resp, err := c.client.List(ctx)
		if err != nil {
			return nil, classify("list models", err)
		}

		list := &ModelList{Models: make([]ModelInfo, 0, len(resp.Models))}
		for _, m := range resp.Models {
			list.Models = append(list.Models, ModelInfo{
				Name:       m.Name,
				Model:      m.Model,
				ModifiedAt: m.ModifiedAt,
				Size:       m.Size,
				Digest:     m.Digest,
				Details: ModelDetails{
					ParentModel:       m.Details.ParentModel,
					Format:            m.Details.Format,
					Family:            m.Details.Family,
					ParameterSize:     m.Details.ParameterSize,
					QuantizationLevel: m.Details.QuantizationLevel,
				},
			})
		}
		return list, nil
	})
}

func toAPIMessages(messages []Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, m := range messages {
		out[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

func fromAPIChatResponse(r api.ChatResponse) *ChatResponse {
	role := r.Message.Role
	if role == "" {
		role = RoleAssistant
	}
	return &ChatResponse{
		Model:              r.Model,
		CreatedAt:          r.CreatedAt,
		Message:            Message{Role: role, Content: r.Message.Content},
		DoneReason:         r.DoneReason,
		Done:               r.Done,
		TotalDuration:      r.TotalDuration,
		LoadDuration:       r.LoadDuration,
		PromptEvalCount:    r.PromptEvalCount,
		PromptEvalDuration: r.PromptEvalDuration,
		EvalCount:          r.EvalCount,
		EvalDuration:       r.EvalDuration,
	}
}

// statusTransport turns every non-2xx response into an api.StatusError
// before the ollama client tries to decode the body.
type statusTransport struct {
	base http.RoundTripper
}

const maxErrorBody = 4 << 10

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := strings.TrimSpace(string(body))
	var errBody struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
		message = errBody.Error
	}

	return nil, api.StatusError{
		StatusCode:   resp.StatusCode,
		Status:       resp.Status,
		ErrorMessage: message,
	}
}
