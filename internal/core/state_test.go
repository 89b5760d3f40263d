package core

import (
	"errors"
	"testing"

	"github.com/Rorical/farmchat/internal/models"
)

func TestChatStateSingleFlight(t *testing.T) {
	cs := NewChatState()

	if !cs.Begin(models.AwaitingMore) {
		t.Fatal("Begin on idle state refused")
	}
	if cs.Begin(models.AwaitingNavigation) {
		t.Fatal("second Begin accepted while busy")
	}
	if _, ok := cs.BeginReply("hi"); ok {
		t.Fatal("BeginReply accepted while busy")
	}
	if len(cs.Turns()) != 0 {
		t.Fatalf("refused action changed the log: %v", cs.Turns())
	}

	cs.Finish()
	if cs.Phase() != models.Idle {
		t.Fatalf("phase = %v, want idle", cs.Phase())
	}
}

func TestChatStateBeginReplyReturnsPriorTurns(t *testing.T) {
	cs := NewChatState()

	history, ok := cs.BeginReply("first")
	if !ok || len(history) != 0 {
		t.Fatalf("first BeginReply = %v, %v", history, ok)
	}
	cs.FinishWithAssistantTurn("answer")

	history, ok = cs.BeginReply("second")
	if !ok {
		t.Fatal("BeginReply refused")
	}
	want := []models.Turn{
		{Role: models.User, Content: "first"},
		{Role: models.Assistant, Content: "answer"},
	}
	if len(history) != len(want) {
		t.Fatalf("history = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Fatalf("history[%d] = %v, want %v", i, history[i], want[i])
		}
	}
	if got := len(cs.Turns()); got != 3 {
		t.Fatalf("log length = %d, want 3", got)
	}
}

func TestChatStateFinishWithError(t *testing.T) {
	cs := NewChatState()
	cs.BeginReply("q")

	boom := errors.New("boom")
	cs.FinishWithError(boom)

	turns := cs.Turns()
	last := turns[len(turns)-1]
	if last.Role != models.Assistant || last.Content != ApologyMessage {
		t.Fatalf("last turn = %v", last)
	}
	if cs.Phase() != models.Idle {
		t.Fatalf("phase = %v, want idle", cs.Phase())
	}
	if !errors.Is(cs.LastError(), boom) {
		t.Fatalf("LastError = %v", cs.LastError())
	}

	cs.Begin(models.AwaitingMore)
	if cs.LastError() != nil {
		t.Fatal("Begin did not clear the last error")
	}
}

func TestChatStateTurnsIsCopy(t *testing.T) {
	cs := NewChatState()
	cs.BeginReply("q")
	turns := cs.Turns()
	turns[0].Content = "mutated"
	if cs.Turns()[0].Content != "q" {
		t.Fatal("Turns exposed internal storage")
	}
}
