// Package completion turns worker completion events into responses for
// waiting callers.
//
// A worker reports the result of a command by publishing an Event on the
// broker's completion topic or by POSTing it to /respond. The Router looks
// up the Translator registered for the event's action kind, converts the
// worker's outcome code into an HTTP status and body, and resolves the
// matching pending entry. Events for ids that are no longer pending are
// dropped; they never produce a second response.
//
// Translators are pure functions of the event, with one exception:
// a successful registration mints a token for the new user.
package completion
