package natsbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
)

func TestSubjects(t *testing.T) {
	s := Subjects{Exchange: "books"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"command", s.Command("mongo"), "books.command.mongo"},
		{"all commands", s.AllCommands(), "books.command.>"},
		{"completion", s.Completion(), "books.completion"},
		{"stream", s.StreamName(), "BOOKS_COMMANDS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSubjects_DefaultExchange(t *testing.T) {
	var s Subjects
	if got := s.Completion(); got != "coursebook.completion" {
		t.Errorf("Completion() = %q, want coursebook.completion", got)
	}
	if got := (Subjects{Exchange: "a.b"}).StreamName(); got != "A_B_COMMANDS" {
		t.Errorf("StreamName() = %q, want A_B_COMMANDS", got)
	}
}

func TestValidateRoutingKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"mongo", false},
		{"riak", false},
		{"", true},
		{"a.b", true},
		{"*", true},
		{">", true},
		{"with space", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateRoutingKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRoutingKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSubject) {
				t.Errorf("error should wrap ErrInvalidSubject, got %v", err)
			}
		})
	}
}

func TestConnect_Refused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, config.NATSConfig{
		URL:           "nats://127.0.0.1:1",
		MaxReconnects: 0,
		ReconnectWait: 1,
	}, Subjects{}, nil)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, config.NATSConfig{URL: "nats://127.0.0.1:4222"}, Subjects{}, nil)
	if !errors.Is(err, ErrConnectionFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed wrapping context.Canceled", err)
	}
}

func TestBus_NotConnected(t *testing.T) {
	var b *Bus
	if b.IsConnected() {
		t.Error("nil bus should not report connected")
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close() on nil bus = %v", err)
	}

	empty := &Bus{}
	if err := empty.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := empty.Publish(context.Background(), "x.command.mongo", []byte("{}"), ""); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() = %v, want ErrNotConnected", err)
	}
	if err := empty.Publish(context.Background(), "", nil, ""); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("Publish(empty subject) = %v, want ErrInvalidSubject", err)
	}
	if err := empty.Subscribe("x", nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) = %v, want ErrSubscribeFailed", err)
	}
	if err := empty.Subscribe("x", func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() = %v, want ErrNotConnected", err)
	}
}
