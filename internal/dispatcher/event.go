package dispatcher

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/farmchat/internal/eventbus"
)

// CoreEventMsg wraps a core event for delivery to the tea program.
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// BusClosedMsg is delivered once the core to UI channel has been closed.
type BusClosedMsg struct{}

// EventDispatcher bridges the event bus into tea commands.
type EventDispatcher struct {
	eventBus *eventbus.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewEventDispatcher(eventBus *eventbus.EventBus) *EventDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventDispatcher{
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ListenForCoreEvents returns a command that waits for the next core event.
// The model re-issues it after handling each CoreEventMsg.
func (ed *EventDispatcher) ListenForCoreEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ed.ctx.Done():
			return BusClosedMsg{}
		case event, ok := <-ed.eventBus.CoreToUI():
			if !ok {
				return BusClosedMsg{}
			}
			return CoreEventMsg{Event: event}
		}
	}
}

// SendToCore forwards a user action to the core.
func (ed *EventDispatcher) SendToCore(event eventbus.UIEvent) error {
	return ed.eventBus.SendToCore(event)
}

func (ed *EventDispatcher) Stop() {
	ed.cancel()
}

func (ed *EventDispatcher) GetEventBus() *eventbus.EventBus {
	return ed.eventBus
}
