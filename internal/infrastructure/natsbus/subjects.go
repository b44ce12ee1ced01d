package natsbus

import (
	"fmt"
	"strings"
)

// DefaultExchange is the subject root used when none is configured.
const DefaultExchange = "coursebook"

// Subjects builds the gateway's NATS subject names under one exchange root.
type Subjects struct {
	Exchange string
}

func (s Subjects) root() string {
	if s.Exchange == "" {
		return DefaultExchange
	}
	return s.Exchange
}

// Command returns the subject a downstream worker consumes for routingKey.
//
// Example: coursebook.command.mongo
func (s Subjects) Command(routingKey string) string {
	return fmt.Sprintf("%s.command.%s", s.root(), routingKey)
}

// AllCommands returns a wildcard matching every command subject.
//
// Example: coursebook.command.>
func (s Subjects) AllCommands() string {
	return fmt.Sprintf("%s.command.>", s.root())
}

// Completion returns the subject workers publish completion events on.
//
// Example: coursebook.completion
func (s Subjects) Completion() string {
	return fmt.Sprintf("%s.completion", s.root())
}

// StreamName returns the JetStream stream holding command subjects.
//
// Example: COURSEBOOK_COMMANDS
func (s Subjects) StreamName() string {
	name := strings.ToUpper(s.root())
	name = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(name)
	return name + "_COMMANDS"
}

// ValidateRoutingKey rejects keys that would change the subject's shape.
func ValidateRoutingKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty routing key", ErrInvalidSubject)
	}
	if strings.ContainsAny(key, ".*> \t") {
		return fmt.Errorf("%w: routing key %q contains a reserved character", ErrInvalidSubject, key)
	}
	return nil
}
