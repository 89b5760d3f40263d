package core

import "errors"

var (
	// ErrBusy is returned when a conversational action is already in flight.
	ErrBusy = errors.New("another request is in progress")
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoSuggestion is returned when a clicked index is out of range.
	ErrNoSuggestion = errors.New("no such suggestion")
	// ErrInvalidLanguage is returned for a malformed or unoffered language code.
	ErrInvalidLanguage = errors.New("invalid language code")
)
