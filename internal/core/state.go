package core

import (
	"sync"

	"github.com/Rorical/farmchat/internal/metrics"
	"github.com/Rorical/farmchat/internal/models"
)

// ApologyMessage is appended as an assistant turn when a backend action fails.
const ApologyMessage = "Sorry, I encountered an error. Please try again."

// ChatState holds the conversation log and the single-flight phase of a
// session. The log is append-only.
type ChatState struct {
	mu        sync.RWMutex
	turns     []models.Turn
	phase     models.Phase
	lastError error
}

func NewChatState() *ChatState {
	return &ChatState{
		turns: make([]models.Turn, 0),
		phase: models.Idle,
	}
}

// Turns returns a copy of the conversation log.
func (cs *ChatState) Turns() []models.Turn {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	result := make([]models.Turn, len(cs.turns))
	copy(result, cs.turns)
	return result
}

func (cs *ChatState) Phase() models.Phase {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.phase
}

func (cs *ChatState) LastError() error {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastError
}

// Begin moves an idle session into phase. It reports false when another
// action is already in flight.
func (cs *ChatState) Begin(phase models.Phase) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.phase != models.Idle {
		return false
	}
	cs.phase = phase
	cs.lastError = nil
	return true
}

// BeginReply atomically enters AwaitingAssistantReply and appends the user
// turn. It returns the turns that preceded the new one.
func (cs *ChatState) BeginReply(content string) ([]models.Turn, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.phase != models.Idle {
		return nil, false
	}
	cs.phase = models.AwaitingAssistantReply
	cs.lastError = nil

	history := make([]models.Turn, len(cs.turns))
	copy(history, cs.turns)

	cs.turns = append(cs.turns, models.Turn{Role: models.User, Content: content})
	metrics.RecordTurn(string(models.User))
	return history, true
}

// FinishWithAssistantTurn appends the assistant reply and returns to Idle.
func (cs *ChatState) FinishWithAssistantTurn(content string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.turns = append(cs.turns, models.Turn{Role: models.Assistant, Content: content})
	metrics.RecordTurn(string(models.Assistant))
	cs.phase = models.Idle
	cs.lastError = nil
}

// FinishWithError appends the apology turn and returns to Idle.
func (cs *ChatState) FinishWithError(err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.turns = append(cs.turns, models.Turn{Role: models.Assistant, Content: ApologyMessage})
	metrics.RecordTurn(string(models.Assistant))
	cs.phase = models.Idle
	cs.lastError = err
}

// Finish returns to Idle without touching the log.
func (cs *ChatState) Finish() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.phase = models.Idle
	cs.lastError = nil
}
