package llm

import (
	"context"
	"time"

	"github.com/SaiNageswarS/go-collection-boot/async"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// InferenceClient talks to the local inference server. Every Chat call
// carries the whole history of the target session.
type InferenceClient interface {
	Chat(ctx context.Context, model string, messages []Message) <-chan async.Result[*ChatResponse]

	// ListModels doubles as the availability probe.
	ListModels(ctx context.Context) <-chan async.Result[*ModelList]
}

type Message struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // the message content

	// IsQuery marks user-authored input as opposed to a model response.
	IsQuery bool `json:"-"`
	// IsEnd marks protocol messages (prime instruction, file payloads, end
	// signal). They are sent as context but never shown in a transcript.
	IsEnd bool `json:"-"`
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, IsQuery: true}
}

// ControlMessage builds a protocol message hidden from the transcript.
func ControlMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, IsQuery: true, IsEnd: true}
}

// ChatResponse mirrors the non-streaming /api/chat response body.
type ChatResponse struct {
	Model              string
	CreatedAt          time.Time
	Message            Message
	DoneReason         string
	Done               bool
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalCount    int
	PromptEvalDuration time.Duration
	EvalCount          int
	EvalDuration       time.Duration
}

// ModelList mirrors the /api/tags response body.
type ModelList struct {
	Models []ModelInfo
}

type ModelInfo struct {
	Name       string
	Model      string
	ModifiedAt time.Time
	Size       int64
	Digest     string
	Details    ModelDetails
}

type ModelDetails struct {
	ParentModel       string
	Format            string
	Family            string
	ParameterSize     string
	QuantizationLevel string
}

// Names returns the installed model names in server order.
func (l *ModelList) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.Models))
	for _, m := range l.Models {
		names = append(names, m.Name)
	}
	return names
}
