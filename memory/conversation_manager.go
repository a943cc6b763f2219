package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SaiNageswarS/doqq/llm"
	"github.com/SaiNageswarS/doqq/session"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"go.uber.org/zap"
)

// ErrSessionOutOfRange is returned when an exchange targets neither an
// existing session nor the next free index.
var ErrSessionOutOfRange = errors.New("session index out of range")

// maxSessionGap bounds how many missing ids LoadSessions fills with
// placeholders.
const maxSessionGap = 1024

// ConversationManager owns the in-memory sessions and mediates every
// exchange between the inference client and the session store.
type ConversationManager struct {
	client llm.InferenceClient
	store  session.Store

	mu       sync.RWMutex // guards sessions and loaded
	sessions []*conversationState
	loaded   bool
}

// NewConversationManager creates a new conversation manager
func NewConversationManager(client llm.InferenceClient, store session.Store) (*ConversationManager, error) {
	if client == nil {
		return nil, errors.New("memory: inference client is required")
	}
	if store == nil {
		return nil, errors.New("memory: session store is required")
	}
	return &ConversationManager{
		client: client,
		store:  store,
	}, nil
}

// AskDoqq appends message to the session at sessionIndex (creating it when
// sessionIndex equals the session count), sends the whole history to the
// model and persists the request/response pair once the round trip worked.
//
// A failed call leaves the request in memory and writes nothing.
func (cm *ConversationManager) AskDoqq(ctx context.Context, sessionIndex int, modelName, name string, message llm.Message) (*llm.ChatResponse, error) {
	state, err := cm.claim(sessionIndex, modelName, name)
	if err != nil {
		return nil, err
	}
	defer state.turn.Unlock()

	history := state.append(message)

	response, err := async.Await(cm.client.Chat(ctx, modelName, history))
	if err != nil {
		logger.Error("Exchange failed", zap.Int("session", sessionIndex), zap.String("model", modelName), zap.Error(err))
		return nil, err
	}

	state.append(response.Message)

	snapshot := state.snapshot()
	if err := cm.persist(ctx, snapshot, message, response.Message); err != nil {
		logger.Error("Failed to persist exchange", zap.Int("session", sessionIndex), zap.Error(err))
		return nil, err
	}

	return response, nil
}

// claim returns the state for sessionIndex with its turn lock held,
// creating the session when sessionIndex is the next free index.
func (cm *ConversationManager) claim(sessionIndex int, modelName, name string) (*conversationState, error) {
	cm.mu.Lock()
	if sessionIndex < 0 || sessionIndex > len(cm.sessions) {
		count := len(cm.sessions)
		cm.mu.Unlock()
		return nil, fmt.Errorf("memory: session %d with %d sessions: %w", sessionIndex, count, ErrSessionOutOfRange)
	}

	if sessionIndex == len(cm.sessions) {
		state := &conversationState{conv: Conversation{ID: sessionIndex, Name: name, ModelName: modelName}}
		state.turn.Lock()
		cm.sessions = append(cm.sessions, state)
		cm.mu.Unlock()
		logger.Info("Created session", zap.Int("session", sessionIndex), zap.String("name", name))
		return state, nil
	}

	state := cm.sessions[sessionIndex]
	cm.mu.Unlock()

	state.turn.Lock()
	state.adopt(name, modelName)
	return state, nil
}

// persist appends the pair to the stored session, inserting the session on
// its first successful exchange. Lookup and write share one transaction.
func (cm *ConversationManager) persist(ctx context.Context, conv Conversation, request, response llm.Message) error {
	id := int64(conv.ID)
	return cm.store.Transaction(ctx, func(tx session.Store) error {
		existing, err := tx.FetchOne(ctx, id)
		if err != nil {
			return err
		}

		messages := toMessageModels(request, response)
		if existing != nil {
			return tx.AppendMessages(ctx, id, messages)
		}

		return tx.Insert(ctx, &session.SessionModel{
			ID:        id,
			Name:      conv.Name,
			ModelName: conv.ModelName,
			Messages:  messages,
		})
	})
}

// FindSession looks a session up in the store. It returns nil when the
// session was never persisted.
func (cm *ConversationManager) FindSession(ctx context.Context, id int) (*session.SessionModel, error) {
	return cm.store.FetchOne(ctx, int64(id))
}

// LoadSessions hydrates the manager from the store once. Later calls, or a
// call after sessions were already created, leave the state untouched.
func (cm *ConversationManager) LoadSessions(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.loaded || len(cm.sessions) > 0 {
		return nil
	}

	models, err := cm.store.FetchAll(ctx, session.OrderDescending)
	if err != nil {
		logger.Error("Failed to load sessions", zap.Error(err))
		return err
	}

	// Ids far past the row count would force a huge slot slice.
	limit := int64(len(models)) + maxSessionGap
	var slots []*conversationState
	for _, m := range models {
		if m.ID < 0 || m.ID >= limit {
			logger.Error("Skipping session with out of range id", zap.Int64("id", m.ID), zap.Int64("limit", limit))
			continue
		}
		if slots == nil {
			// Descending order: the first valid id is the largest.
			slots = make([]*conversationState, m.ID+1)
		}
		slots[m.ID] = &conversationState{conv: fromSessionModel(m)}
	}
	// Ids that were never persisted keep an empty slot so indices stay dense.
	for i := range slots {
		if slots[i] == nil {
			slots[i] = &conversationState{conv: Conversation{ID: i}}
		}
	}

	cm.sessions = slots
	cm.loaded = true
	logger.Info("Loaded sessions", zap.Int("count", len(slots)))
	return nil
}

// Count returns the number of sessions, which is also the next free index.
func (cm *ConversationManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.sessions)
}

// Conversation returns a copy of the session with the given id.
func (cm *ConversationManager) Conversation(id int) (Conversation, bool) {
	cm.mu.RLock()
	if id < 0 || id >= len(cm.sessions) {
		cm.mu.RUnlock()
		return Conversation{}, false
	}
	state := cm.sessions[id]
	cm.mu.RUnlock()
	return state.snapshot(), true
}

// Sessions returns copies of all sessions ordered by id.
func (cm *ConversationManager) Sessions() []Conversation {
	cm.mu.RLock()
	states := make([]*conversationState, len(cm.sessions))
	copy(states, cm.sessions)
	cm.mu.RUnlock()

	out := make([]Conversation, len(states))
	for i, s := range states {
		out[i] = s.snapshot()
	}
	return out
}

// Recent returns copies of all sessions, most recent first.
func (cm *ConversationManager) Recent() []Conversation {
	sessions := cm.Sessions()
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
	return sessions
}
