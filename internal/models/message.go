package models

type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// Turn is one entry of the conversation log sent as context to the assistant.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Language is a selectable target language.
type Language struct {
	Code string
	Name string
}

// DefaultLanguage is the source language of the backend.
var DefaultLanguage = Language{Code: "en", Name: "English"}

// Suggestion is one row of the recommendation display list.
type Suggestion struct {
	Index   int
	Source  string // canonical text, always sent to the backend
	Text    string // translated text; empty while Pending
	Pending bool
}

// Label returns what a user should see for the suggestion.
func (s Suggestion) Label() string {
	if s.Pending {
		return s.Source
	}
	return s.Text
}
