package mqtt

import (
	"fmt"
	"strings"
)

// DefaultExchange is the topic root used when none is configured.
const DefaultExchange = "coursebook"

// Topics builds the gateway's MQTT topic names under one exchange root.
//
//	topics := mqtt.Topics{Exchange: "coursebook"}
//	topics.Command("mongo") // "coursebook/command/mongo"
//	topics.Completion()     // "coursebook/completion"
type Topics struct {
	Exchange string
}

func (t Topics) root() string {
	if t.Exchange == "" {
		return DefaultExchange
	}
	return t.Exchange
}

// Command returns the topic a downstream worker consumes for routingKey.
//
// Example: coursebook/command/riak
func (t Topics) Command(routingKey string) string {
	return fmt.Sprintf("%s/command/%s", t.root(), routingKey)
}

// AllCommands returns a wildcard matching every command topic.
//
// Example: coursebook/command/+
func (t Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", t.root())
}

// Completion returns the topic workers publish completion events on.
//
// Example: coursebook/completion
func (t Topics) Completion() string {
	return fmt.Sprintf("%s/completion", t.root())
}

// SystemStatus returns the retained gateway status topic.
//
// Example: coursebook/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.root())
}

// RoutingKeyFromCommand extracts the routing key from a command topic.
// It returns "" if topic is not a command topic under this exchange.
func (t Topics) RoutingKeyFromCommand(topic string) string {
	prefix := t.root() + "/command/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	key := strings.TrimPrefix(topic, prefix)
	if key == "" || strings.Contains(key, "/") {
		return ""
	}
	return key
}

// ValidateRoutingKey rejects keys that would escape their topic level.
func ValidateRoutingKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty routing key", ErrInvalidTopic)
	}
	if strings.ContainsAny(key, "/+#") {
		return fmt.Errorf("%w: routing key %q contains a reserved character", ErrInvalidTopic, key)
	}
	return nil
}
