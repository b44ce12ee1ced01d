//go:build integration

package mqtt

import (
	"context"
	"testing"
	"time"
)

// Integration tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func connectIntegration(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, cfg, Topics{Exchange: "coursebook-it"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_CommandRoundtrip(t *testing.T) {
	client := connectIntegration(t, "coursebook-it-roundtrip")
	topics := client.Topics()

	received := make(chan string, 1)
	err := client.Subscribe(topics.AllCommands(), 1, func(topic string, payload []byte) error {
		received <- topics.RoutingKeyFromCommand(topic) + ":" + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if got := client.Subscriptions(); len(got) != 1 || got[0] != topics.AllCommands() {
		t.Errorf("Subscriptions() = %v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Publish(ctx, topics.Command("mongo"), []byte(`{"action":"PING"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `mongo:{"action":"PING"}` {
			t.Errorf("received %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("command not received")
	}
}

func TestIntegration_HandlerPanicRecovered(t *testing.T) {
	client := connectIntegration(t, "coursebook-it-panic")
	topics := client.Topics()

	done := make(chan struct{}, 2)
	err := client.Subscribe(topics.Completion(), 1, func(string, []byte) error {
		done <- struct{}{}
		panic("handler bug")
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := client.Publish(ctx, topics.Completion(), []byte(`{}`), 1, false); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("handler stopped receiving after a panic")
		}
	}
	if !client.IsConnected() {
		t.Error("client disconnected after handler panic")
	}
}
