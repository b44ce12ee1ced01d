package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/config"
	"github.com/nerrad567/coursebook-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// fakeInflux answers /ping and records line-protocol bodies sent to
// /api/v2/write.
type fakeInflux struct {
	*httptest.Server

	mu     sync.Mutex
	writes []string
	got    chan struct{}
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{got: make(chan struct{}, 16)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.writes = append(f.writes, string(body))
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			f.got <- struct{}{}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func (f *fakeInflux) waitWrite(t *testing.T) {
	t.Helper()
	select {
	case <-f.got:
	case <-time.After(5 * time.Second):
		t.Fatal("no write received")
	}
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "coursebook",
		Bucket:        "gateway",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := influxdb.Connect(ctx, testConfig("http://127.0.0.1:1"))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_HealthCheck(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	client.Close()
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}
}

func TestEntryClosed_WritesOutcomePoint(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.EntryClosed(pending.Closure{
		ID:          "c-1",
		Kind:        pending.CourseCreate,
		Disposition: pending.Resolved,
		Status:      http.StatusCreated,
		Age:         80 * time.Millisecond,
	})
	client.Flush()
	srv.waitWrite(t)

	body := srv.body()
	for _, want := range []string{
		"gateway_outcomes,",
		"action=COURSE_CREATE",
		"disposition=resolved",
		"service=coursebook-gateway",
		"status=201i",
		"wait_ms=80",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("write body %q missing %q", body, want)
		}
	}
}

func TestPublishFailed_WritesPoint(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.PublishFailed(broker.RouteCounters, broker.ChannelFailed)
	client.Flush()
	srv.waitWrite(t)

	body := srv.body()
	for _, want := range []string{
		"gateway_publish_failures,",
		"kind=channel_failed",
		"routing_key=riak",
		"count=1i",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("write body %q missing %q", body, want)
		}
	}
}

func TestWrites_NoopAfterClose(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	client.WriteOutcome("REGISTRATION", "expired", http.StatusAccepted, time.Second, time.Now())
	client.Flush()
	client.Close()

	if body := srv.body(); body != "" {
		t.Errorf("unexpected write after Close: %q", body)
	}
}

func TestWriteErrors_ReachHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, `{"code":"invalid","message":"bucket not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	errs := make(chan error, 4)
	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL),
		influxdb.WithErrorHandler(func(err error) { errs <- err }))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteOutcome("WISH_CREATE", "resolved", http.StatusCreated, time.Millisecond, time.Now())
	client.Flush()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("handler received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error never reached the handler")
	}
}
