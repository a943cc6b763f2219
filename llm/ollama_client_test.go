package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SaiNageswarS/doqq/config"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatReply = `{
	"model": "llama3",
	"created_at": "2025-01-05T10:00:00Z",
	"message": {"role": "assistant", "content": "hi there"},
	"done_reason": "stop",
	"done": true,
	"total_duration": 5000,
	"load_duration": 1000,
	"prompt_eval_count": 12,
	"prompt_eval_duration": 2000,
	"eval_count": 7,
	"eval_duration": 1500
}`

const tagsReply = `{
	"models": [{
		"name": "codellama:13b",
		"model": "codellama:13b",
		"modified_at": "2025-01-28T09:00:00Z",
		"size": 7365960935,
		"digest": "9f438cb9cd581fc025612d27f7c1a6669ff83a8bb0ed86c94fcf4c5440555697",
		"details": {
			"parent_model": "",
			"format": "gguf",
			"family": "llama",
			"parameter_size": "13B",
			"quantization_level": "Q4_0"
		}
	}]
}`

type capturedChat struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   *bool     `json:"stream"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOllamaClient(srv.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)
	return client
}

func TestOllamaClient_ChatSendsFullHistory(t *testing.T) {
	var got capturedChat
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply))
	})

	history := []Message{
		ControlMessage("prime"),
		{Role: RoleAssistant, Content: "ok"},
		UserMessage("hello"),
	}
	resp, err := async.Await(client.Chat(context.Background(), "llama3", history))
	require.NoError(t, err)

	assert.Equal(t, "llama3", got.Model)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "prime", got.Messages[0].Content)
	assert.Equal(t, "hello", got.Messages[2].Content)

	assert.Equal(t, "llama3", resp.Model)
	assert.Equal(t, RoleAssistant, resp.Message.Role)
	assert.Equal(t, "hi there", resp.Message.Content)
	assert.False(t, resp.Message.IsEnd)
	assert.Equal(t, "stop", resp.DoneReason)
	assert.True(t, resp.Done)
	assert.Equal(t, time.Duration(5000), resp.TotalDuration)
	assert.Equal(t, time.Duration(1000), resp.LoadDuration)
	assert.Equal(t, 12, resp.PromptEvalCount)
	assert.Equal(t, time.Duration(2000), resp.PromptEvalDuration)
	assert.Equal(t, 7, resp.EvalCount)
	assert.Equal(t, time.Duration(1500), resp.EvalDuration)
	assert.Equal(t, 2025, resp.CreatedAt.Year())
}

func TestOllamaClient_ChatServerErrorIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "json error body", body: `{"error":"model 'nope' not found"}`, want: "model 'nope' not found"},
		{name: "plain text body", body: "boom", want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := async.Await(client.Chat(context.Background(), "nope", []Message{UserMessage("hi")}))
			require.Error(t, err)

			var netErr *NetworkError
			require.True(t, errors.As(err, &netErr), "got %T: %v", err, err)
			assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOllamaClient_ChatMalformedBodyIsDecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message": "not an object"}`))
	})

	_, err := async.Await(client.Chat(context.Background(), "llama3", []Message{UserMessage("hi")}))
	require.Error(t, err)

	var decErr *DecodeError
	assert.True(t, errors.As(err, &decErr), "got %T: %v", err, err)
}

func TestOllamaClient_ChatEmptyBodyIsDecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := async.Await(client.Chat(context.Background(), "llama3", []Message{UserMessage("hi")}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	var decErr *DecodeError
	assert.True(t, errors.As(err, &decErr))
}

func TestOllamaClient_UnreachableIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewOllamaClient(url, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = async.Await(client.Chat(context.Background(), "llama3", []Message{UserMessage("hi")}))
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %T: %v", err, err)
	assert.Zero(t, netErr.StatusCode)

	_, err = async.Await(client.ListModels(context.Background()))
	assert.True(t, errors.As(err, &netErr))
}

func TestOllamaClient_ListModels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(tagsReply))
	})

	list, err := async.Await(client.ListModels(context.Background()))
	require.NoError(t, err)
	require.Len(t, list.Models, 1)

	m := list.Models[0]
	assert.Equal(t, "codellama:13b", m.Name)
	assert.Equal(t, int64(7365960935), m.Size)
	assert.Equal(t, "gguf", m.Details.Format)
	assert.Equal(t, "llama", m.Details.Family)
	assert.Equal(t, "13B", m.Details.ParameterSize)
	assert.Equal(t, "Q4_0", m.Details.QuantizationLevel)
	assert.Equal(t, []string{"codellama:13b"}, list.Names())
}

func TestOllamaClient_ListModelsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models": []}`))
	})

	list, err := async.Await(client.ListModels(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, list.Models)
}

func TestNewOllamaClient_InvalidEndpoint(t *testing.T) {
	_, err := NewOllamaClient("not a url")
	require.Error(t, err)

	var cfgErr *config.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, config.ErrInvalidEndpoint)
}

func TestModelList_NamesNil(t *testing.T) {
	var l *ModelList
	assert.Nil(t, l.Names())
}
