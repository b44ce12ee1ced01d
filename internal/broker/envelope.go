package broker

import (
	"encoding/json"
	"fmt"
)

// Routing keys understood by the downstream workers.
const (
	RouteDocuments = "mongo"
	RouteCounters  = "riak"
)

// Envelope is a JSON command object. Every envelope carries "action";
// envelopes that expect a completion also carry the correlation id under
// both "correlationId" and "uuid", the latter being the field the workers
// echo back.
type Envelope map[string]any

// NewEnvelope returns an envelope for action with the given fields.
func NewEnvelope(action string, fields map[string]any) Envelope {
	env := make(Envelope, len(fields)+1)
	for k, v := range fields {
		env[k] = v
	}
	env["action"] = action
	return env
}

// WithCorrelationID stamps id onto the envelope and returns it.
func (e Envelope) WithCorrelationID(id string) Envelope {
	e["correlationId"] = id
	e["uuid"] = id
	return e
}

// Action returns the envelope's action, or "".
func (e Envelope) Action() string {
	s, _ := e["action"].(string)
	return s
}

// CorrelationID returns the envelope's correlation id, or "".
func (e Envelope) CorrelationID() string {
	s, _ := e["correlationId"].(string)
	return s
}

// Encode serialises the envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	if e.Action() == "" {
		return nil, fmt.Errorf("broker: envelope has no action")
	}
	return json.Marshal(e)
}
