package eventbus

import (
	"errors"
	"sync"
	"time"

	"github.com/Rorical/farmchat/internal/models"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrChannelFull = errors.New("channel is full")
	ErrClosed      = errors.New("event bus is closed")
)

// UIEvent represents events sent from UI to Core
type UIEvent interface {
	UIEvent()
}

// CoreEvent represents events sent from Core to UI
type CoreEvent interface {
	CoreEvent()
}

// SendMessageEvent - UI submits typed input
type SendMessageEvent struct {
	Message string
}

func (e SendMessageEvent) UIEvent() {}

// ClickSuggestionEvent - UI activates suggestion Index
type ClickSuggestionEvent struct {
	Index int
}

func (e ClickSuggestionEvent) UIEvent() {}

// GoBackEvent - UI asks for the previous suggestion list
type GoBackEvent struct{}

func (e GoBackEvent) UIEvent() {}

// MoreEvent - UI asks for additional suggestions
type MoreEvent struct{}

func (e MoreEvent) UIEvent() {}

// ChangeLanguageEvent - UI selects a display language
type ChangeLanguageEvent struct {
	Code string
	Name string
}

func (e ChangeLanguageEvent) UIEvent() {}

// StateUpdateEvent - Core pushes a full session snapshot to UI
type StateUpdateEvent struct {
	Snapshot models.Snapshot
	Error    error
	// Seq increases with every push of a session. Zero means unordered.
	Seq uint64
}

func (e StateUpdateEvent) CoreEvent() {}

// EventBusError represents errors in event processing
type EventBusError struct {
	Operation string
	Err       error
	Timestamp time.Time
}

func (e EventBusError) Error() string {
	return e.Operation + ": " + e.Err.Error()
}

func (e EventBusError) Unwrap() error {
	return e.Err
}

// CircuitBreakerState represents the state of circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements circuit breaker pattern
type CircuitBreaker struct {
	mu              sync.Mutex
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           CircuitBreakerState
	now             func() time.Time
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
		now:          time.Now,
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen {
		// Check if we should transition to half-open
		if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
		}
	}
	return cb.state == CircuitOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = CircuitClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = cb.now()

	if cb.failureCount >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// EventBus handles communication between UI and Core with circuit breaker
type EventBus struct {
	uiToCore       chan UIEvent
	coreToUI       chan CoreEvent
	circuitBreaker *CircuitBreaker

	mu            sync.RWMutex
	closed        bool
	errorCallback func(EventBusError)
}

// DefaultBufferSize is the capacity of each direction.
const DefaultBufferSize = 100

func NewEventBus() *EventBus {
	return NewEventBusSize(DefaultBufferSize)
}

// NewEventBusSize creates a bus whose channels hold size events each.
func NewEventBusSize(size int) *EventBus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &EventBus{
		uiToCore:       make(chan UIEvent, size),
		coreToUI:       make(chan CoreEvent, size),
		circuitBreaker: NewCircuitBreaker(5, 30*time.Second),
	}
}

func (eb *EventBus) SetErrorCallback(callback func(EventBusError)) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.errorCallback = callback
}

// SendToCore queues a user action. Actions are never dropped silently; a full
// queue is reported to the caller.
func (eb *EventBus) SendToCore(event UIEvent) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrClosed
	}

	if eb.circuitBreaker.IsOpen() {
		return eb.reportError("SendToCore", ErrCircuitOpen)
	}

	select {
	case eb.uiToCore <- event:
		eb.circuitBreaker.RecordSuccess()
		return nil
	default:
		return eb.reportError("SendToCore", ErrChannelFull)
	}
}

// SendToUI queues a state update. Each update carries a full snapshot, so
// when the queue is full the oldest pending update is discarded to make
// room for the new one.
func (eb *EventBus) SendToUI(event CoreEvent) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrClosed
	}

	for attempt := 0; attempt < 2; attempt++ {
		select {
		case eb.coreToUI <- event:
			return nil
		default:
		}
		select {
		case <-eb.coreToUI:
		default:
		}
	}
	return eb.reportError("SendToUI", ErrChannelFull)
}

// reportError must be called with eb.mu held for reading.
func (eb *EventBus) reportError(operation string, err error) error {
	busError := EventBusError{
		Operation: operation,
		Err:       err,
		Timestamp: time.Now(),
	}
	eb.circuitBreaker.RecordFailure()
	if eb.errorCallback != nil {
		eb.errorCallback(busError)
	}
	return busError
}

func (eb *EventBus) UIToCore() <-chan UIEvent {
	return eb.uiToCore
}

func (eb *EventBus) CoreToUI() <-chan CoreEvent {
	return eb.coreToUI
}

func (eb *EventBus) GetCircuitBreakerState() CircuitBreakerState {
	return eb.circuitBreaker.State()
}

// Close closes both channels. Sends after Close return ErrClosed.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.uiToCore)
	close(eb.coreToUI)
}
