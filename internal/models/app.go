package models

// Phase is the conversational state of a session.
type Phase int

const (
	Idle Phase = iota
	AwaitingAssistantReply
	AwaitingNavigation
	AwaitingMore
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingAssistantReply:
		return "awaiting_reply"
	case AwaitingNavigation:
		return "awaiting_navigation"
	case AwaitingMore:
		return "awaiting_more"
	}
	return "unknown"
}

// Snapshot is the read-only view of a session that the UI renders.
type Snapshot struct {
	Turns            []Turn
	Suggestions      []Suggestion
	HasHistory       bool
	Phase            Phase
	Translating      bool
	TranslatingIndex int // -1 when no item is in flight
	Language         Language
	Languages        []Language // sorted by name
	Initialized      bool
}

// Busy reports whether a conversational action is in flight.
func (s Snapshot) Busy() bool {
	return s.Phase != Idle
}

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Session  Snapshot // Latest snapshot pushed by the core
	Selected int      // Highlighted suggestion
	Status   string   // Status bar text
	Width    int      // Terminal width
	Height   int      // Terminal height
	LastSeq  uint64   // Seq of the applied snapshot
}
