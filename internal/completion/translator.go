package completion

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/coursebook-gateway/internal/auth"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// ErrUnrecognizedOutcome is returned alongside the 500 outcome produced for
// an outcome code a translator does not know.
var ErrUnrecognizedOutcome = errors.New("unrecognized outcome code")

// Worker outcome codes. 100 and 102 mean the worker is still processing.
const (
	CodeContinue   = 100
	CodeProcessing = 102
	CodeCreated    = 201
	CodeConflict   = 409
	CodeFailed     = 500
)

// Translator maps a completion event to the outcome for the waiting caller.
//
// A non-nil error never replaces the outcome: the outcome is still
// delivered and the error is only logged.
type Translator interface {
	Translate(ev Event) (pending.Outcome, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ev Event) (pending.Outcome, error)

// Translate implements Translator.
func (f TranslatorFunc) Translate(ev Event) (pending.Outcome, error) {
	return f(ev)
}

// TokenIssuer mints tokens for newly registered users.
type TokenIssuer interface {
	Issue(subject string) (auth.Token, error)
}

// RegistrationTranslator handles REGISTRATION completions.
type RegistrationTranslator struct {
	Tokens TokenIssuer
}

// Translate implements Translator.
//
// 201 mints a token for the new user and returns it as the body.
// 102, 409 and 500 pass the worker's status and message through.
func (t RegistrationTranslator) Translate(ev Event) (pending.Outcome, error) {
	switch ev.OutcomeCode {
	case CodeCreated:
		subject := ev.Subject()
		if subject == "" {
			return serverError("Registration completed without a username"),
				fmt.Errorf("%w: 201 without username", ErrMalformedEvent)
		}
		tok, err := t.Tokens.Issue(subject)
		if err != nil {
			return serverError("Unable to issue token"), fmt.Errorf("minting token: %w", err)
		}
		return pending.Outcome{Status: http.StatusCreated, Body: tok.Raw}, nil
	case CodeProcessing, CodeConflict, CodeFailed:
		return passThrough(ev), nil
	default:
		return serverError(fmt.Sprintf("Unhandled registration outcome %d", ev.OutcomeCode)),
			fmt.Errorf("%w: registration %d", ErrUnrecognizedOutcome, ev.OutcomeCode)
	}
}

// CreationTranslator handles course and wish creation completions.
type CreationTranslator struct {
	// Entity names the created thing in error messages ("course", "wish").
	Entity string
}

// Translate implements Translator. 201, 100, 409 and 500 pass through.
func (t CreationTranslator) Translate(ev Event) (pending.Outcome, error) {
	switch ev.OutcomeCode {
	case CodeCreated, CodeContinue, CodeConflict, CodeFailed:
		return passThrough(ev), nil
	default:
		return serverError(fmt.Sprintf("Unhandled %s creation outcome %d", t.Entity, ev.OutcomeCode)),
			fmt.Errorf("%w: %s creation %d", ErrUnrecognizedOutcome, t.Entity, ev.OutcomeCode)
	}
}

func passThrough(ev Event) pending.Outcome {
	return pending.Outcome{Status: ev.OutcomeCode, Body: ev.Message}
}

func serverError(msg string) pending.Outcome {
	return pending.Outcome{Status: http.StatusInternalServerError, Body: msg}
}
