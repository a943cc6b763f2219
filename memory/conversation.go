package memory

import (
	"sync"

	"github.com/SaiNageswarS/doqq/llm"
	"github.com/SaiNageswarS/doqq/session"
	"github.com/google/uuid"
)

// Conversation is the in-memory state of one session. History is append-only.
type Conversation struct {
	ID        int
	Name      string
	ModelName string
	History   []llm.Message
}

// Visible returns the transcript a user sees for this conversation.
func (c Conversation) Visible() []llm.Message {
	return VisibleMessages(c.History)
}

// VisibleMessages drops protocol messages (IsEnd) from a history.
func VisibleMessages(history []llm.Message) []llm.Message {
	visible := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if !m.IsEnd {
			visible = append(visible, m)
		}
	}
	return visible
}

// conversationState pairs a conversation with the lock serializing its exchanges.
type conversationState struct {
	turn sync.Mutex // held for a whole exchange, persistence included

	mu   sync.RWMutex // guards conv
	conv Conversation
}

func (s *conversationState) snapshot() Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConversation(s.conv)
}

func (s *conversationState) append(msgs ...llm.Message) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.History = append(s.conv.History, msgs...)
	history := make([]llm.Message, len(s.conv.History))
	copy(history, s.conv.History)
	return history
}

// adopt fills the name and model of a placeholder slot on its first exchange.
func (s *conversationState) adopt(name, modelName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv.Name == "" {
		s.conv.Name = name
	}
	if s.conv.ModelName == "" {
		s.conv.ModelName = modelName
	}
}

func copyConversation(c Conversation) Conversation {
	history := make([]llm.Message, len(c.History))
	copy(history, c.History)
	c.History = history
	return c
}

func fromSessionModel(m session.SessionModel) Conversation {
	history := make([]llm.Message, 0, len(m.Messages))
	for _, msg := range m.Messages {
		history = append(history, llm.Message{
			Role:    msg.Role,
			Content: msg.Content,
			IsQuery: msg.IsQuery,
			IsEnd:   msg.IsEnd,
		})
	}
	return Conversation{
		ID:        int(m.ID),
		Name:      m.Name,
		ModelName: m.ModelName,
		History:   history,
	}
}

func toMessageModels(msgs ...llm.Message) []session.MessageModel {
	out := make([]session.MessageModel, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, session.MessageModel{
			ID:      uuid.NewString(),
			Role:    m.Role,
			Content: m.Content,
			IsQuery: m.IsQuery,
			IsEnd:   m.IsEnd,
		})
	}
	return out
}
