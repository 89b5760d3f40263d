package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/farmchat/internal/dispatcher"
	"github.com/Rorical/farmchat/internal/eventbus"
	"github.com/Rorical/farmchat/internal/models"
	"github.com/Rorical/farmchat/internal/translate"
)

const (
	StatusReady   = "Ready"
	StatusLoading = "Loading suggestions"
	StatusBusy    = "Waiting for the assistant"
)

// Sender delivers user actions to the core.
type Sender interface {
	SendToCore(event eventbus.UIEvent) error
}

// KeyResult tells the model what to do after a key press.
type KeyResult struct {
	Cmd tea.Cmd
	// Handled is false when the key belongs to the text input.
	Handled bool
	// ClearInput is set when the input text was submitted.
	ClearInput bool
}

// HandleKeyMsg maps a key press to a core action. input is the current
// text input value.
func HandleKeyMsg(appModel *models.AppModel, keyMsg tea.KeyMsg, input string, sender Sender) KeyResult {
	switch keyMsg.String() {
	case "ctrl+c", "esc":
		return KeyResult{Cmd: tea.Quit, Handled: true}
	case "enter":
		return handleEnter(appModel, input, sender)
	case "up", "ctrl+p":
		if appModel.Selected > 0 {
			appModel.Selected--
		}
		return KeyResult{Handled: true}
	case "down", "ctrl+n":
		if appModel.Selected < len(appModel.Session.Suggestions)-1 {
			appModel.Selected++
		}
		return KeyResult{Handled: true}
	case "ctrl+b":
		if !appModel.Session.HasHistory {
			appModel.Status = "Nothing to go back to"
			return KeyResult{Handled: true}
		}
		if appModel.Session.Busy() {
			appModel.Status = StatusBusy
			return KeyResult{Handled: true}
		}
		send(appModel, sender, eventbus.GoBackEvent{})
		return KeyResult{Handled: true}
	case "ctrl+o":
		if len(appModel.Session.Suggestions) == 0 {
			appModel.Status = "No suggestions to extend"
			return KeyResult{Handled: true}
		}
		if appModel.Session.Busy() {
			appModel.Status = StatusBusy
			return KeyResult{Handled: true}
		}
		send(appModel, sender, eventbus.MoreEvent{})
		return KeyResult{Handled: true}
	case "ctrl+l":
		next, ok := NextLanguage(appModel.Session)
		if !ok {
			appModel.Status = "No other languages available"
			return KeyResult{Handled: true}
		}
		if send(appModel, sender, eventbus.ChangeLanguageEvent{Code: next.Code, Name: next.Name}) {
			appModel.Status = "Switching to " + next.Name
		}
		return KeyResult{Handled: true}
	}
	return KeyResult{}
}

func handleEnter(appModel *models.AppModel, input string, sender Sender) KeyResult {
	text := strings.TrimSpace(input)
	if !appModel.Session.Initialized {
		appModel.Status = StatusLoading
		return KeyResult{Handled: true}
	}
	if appModel.Session.Busy() {
		appModel.Status = StatusBusy
		return KeyResult{Handled: true}
	}

	if text != "" {
		ok := send(appModel, sender, eventbus.SendMessageEvent{Message: text})
		return KeyResult{Handled: true, ClearInput: ok}
	}

	if appModel.Selected >= 0 && appModel.Selected < len(appModel.Session.Suggestions) {
		send(appModel, sender, eventbus.ClickSuggestionEvent{Index: appModel.Selected})
	}
	return KeyResult{Handled: true}
}

func send(appModel *models.AppModel, sender Sender, event eventbus.UIEvent) bool {
	if err := sender.SendToCore(event); err != nil {
		appModel.Status = "Error sending action: " + err.Error()
		return false
	}
	return true
}

// NextLanguage returns the catalog entry after the selected language,
// wrapping around.
func NextLanguage(snap models.Snapshot) (models.Language, bool) {
	if len(snap.Languages) < 2 {
		return models.Language{}, false
	}
	for i, l := range snap.Languages {
		if translate.SameLanguage(l.Code, snap.Language.Code) {
			return snap.Languages[(i+1)%len(snap.Languages)], true
		}
	}
	return snap.Languages[0], true
}

// HandleCoreEvent copies core state into the UI model.
func HandleCoreEvent(appModel *models.AppModel, msg dispatcher.CoreEventMsg) {
	switch event := msg.Event.(type) {
	case eventbus.StateUpdateEvent:
		if event.Seq != 0 {
			if event.Seq <= appModel.LastSeq {
				return
			}
			appModel.LastSeq = event.Seq
		}
		appModel.Session = event.Snapshot

		if n := len(event.Snapshot.Suggestions); appModel.Selected >= n {
			appModel.Selected = max(n-1, 0)
		}
		appModel.Status = statusFor(event)
	}
}

func statusFor(event eventbus.StateUpdateEvent) string {
	snap := event.Snapshot
	switch {
	case event.Error != nil:
		return "Error: " + event.Error.Error()
	case !snap.Initialized:
		return StatusLoading
	case snap.Phase == models.AwaitingAssistantReply:
		return StatusBusy
	case snap.Phase == models.AwaitingNavigation:
		return "Going back"
	case snap.Phase == models.AwaitingMore:
		return "Fetching more questions"
	case snap.Translating:
		return fmt.Sprintf("Translating %d/%d", snap.TranslatingIndex+1, len(snap.Suggestions))
	}
	return StatusReady
}
