package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event errors.
var (
	ErrMissingCorrelationID = errors.New("completion event has no correlation id")
	ErrMalformedEvent       = errors.New("malformed completion event")
)

// Event is a worker's report on a previously published command.
//
// Workers in the field use two spellings for several fields; both are
// accepted on decode:
//
//	correlationId | uuid
//	actionKind    | action
//	outcomeCode   | statusCode
type Event struct {
	CorrelationID string          `json:"correlationId"`
	ActionKind    string          `json:"actionKind"`
	OutcomeCode   int             `json:"outcomeCode"`
	Message       string          `json:"message,omitempty"`
	Username      string          `json:"username,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// UnmarshalJSON accepts both field spellings. The first spelling wins when
// an event carries both.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		CorrelationID string          `json:"correlationId"`
		UUID          string          `json:"uuid"`
		ActionKind    string          `json:"actionKind"`
		Action        string          `json:"action"`
		OutcomeCode   *int            `json:"outcomeCode"`
		StatusCode    *int            `json:"statusCode"`
		Message       json.RawMessage `json:"message"`
		Username      string          `json:"username"`
		Payload       json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	*e = Event{
		CorrelationID: firstNonEmpty(raw.CorrelationID, raw.UUID),
		ActionKind:    firstNonEmpty(raw.ActionKind, raw.Action),
		Message:       messageText(raw.Message),
		Username:      raw.Username,
		Payload:       raw.Payload,
	}
	switch {
	case raw.OutcomeCode != nil:
		e.OutcomeCode = *raw.OutcomeCode
	case raw.StatusCode != nil:
		e.OutcomeCode = *raw.StatusCode
	}
	return nil
}

// ParseEvent decodes and checks a completion message.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		// Syntax errors are reported before UnmarshalJSON runs.
		if !errors.Is(err, ErrMalformedEvent) {
			err = fmt.Errorf("%w: %w", ErrMalformedEvent, err)
		}
		return Event{}, err
	}
	if ev.CorrelationID == "" {
		return ev, ErrMissingCorrelationID
	}
	return ev, nil
}

// Subject returns the username the event refers to, looking in the payload
// when the top-level field is absent.
func (e Event) Subject() string {
	if e.Username != "" {
		return e.Username
	}
	if len(e.Payload) == 0 {
		return ""
	}
	var p struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return ""
	}
	return p.Username
}

// messageText renders a message field. Workers normally send a string;
// anything else is passed on as its JSON text.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
