package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/completion"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// ─── Registration ──────────────────────────────────────────────────

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"empty object", `{}`, http.StatusBadRequest, msgUsernameMissing},
		{"no body", ``, http.StatusBadRequest, msgUsernameMissing},
		{"no password", `{"username":"ada"}`, http.StatusBadRequest, msgPasswordMissing},
		{"malformed json", `{"username":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(http.MethodPut, "/register", tt.body, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}

			env.settle()
			if n := len(env.pub.messages); n != 0 {
				t.Errorf("published %d messages, want 0", n)
			}
			if n := env.registry.Len(); n != 0 {
				t.Errorf("registry holds %d entries, want 0", n)
			}
		})
	}
}

func TestRegister_CreatedReturnsToken(t *testing.T) {
	env := newTestEnv(t)
	env.completeWith(201, "", "ada")

	w := env.do(http.MethodPut, "/register", `{"username":"ada","password":"x"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	subject, err := env.tokens.Verify(w.Body.String())
	if err != nil {
		t.Fatalf("Verify(body): %v", err)
	}
	if subject != "ada" {
		t.Errorf("token subject = %q, want ada", subject)
	}

	cmds := env.pub.on(broker.RouteDocuments)
	if len(cmds) != 1 {
		t.Fatalf("published %d commands, want 1", len(cmds))
	}
	cmd := cmds[0]
	if cmd.Action() != "REGISTRATION" {
		t.Errorf("action = %q, want REGISTRATION", cmd.Action())
	}
	if cmd["username"] != "ada" || cmd["password"] != "x" {
		t.Errorf("command fields = %v", cmd)
	}
	id := cmd.CorrelationID()
	if id == "" || cmd["uuid"] != id {
		t.Errorf("correlation id %q / uuid %v not stamped", id, cmd["uuid"])
	}
	if got := w.Header().Get(correlationHeader); got != id {
		t.Errorf("%s = %q, want %q", correlationHeader, got, id)
	}

	env.settle()
	stats := env.pub.on(broker.RouteCounters)
	if len(stats) != 1 {
		t.Fatalf("published %d stat messages, want 1", len(stats))
	}
	if stats[0].Action() != "REGISTRATION" || stats[0]["ip"] != "192.0.2.1" {
		t.Errorf("stat message = %v", stats[0])
	}
	if n := env.registry.Len(); n != 0 {
		t.Errorf("registry holds %d entries after resolution", n)
	}
}

func TestRegister_PassThroughOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		message    string
		wantStatus int
		wantBody   string
	}{
		{"duplicate username", 409, "duplicate username", http.StatusConflict, "duplicate username"},
		{"worker failure", 500, "store unavailable", http.StatusInternalServerError, "store unavailable"},
		{"still processing", 102, "processing", http.StatusAccepted, "processing"},
		{"unrecognized code", 418, "", http.StatusInternalServerError, "Unhandled registration outcome 418"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.completeWith(tt.code, tt.message, "ada")

			w := env.do(http.MethodPut, "/register", `{"username":"ada","password":"x"}`, "")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if n := env.registry.Len(); n != 0 {
				t.Errorf("registry holds %d entries", n)
			}
		})
	}
}

func TestRegister_Timeout(t *testing.T) {
	short := pending.New(pending.WithTimeouts(pending.Timeouts{Default: 50 * time.Millisecond}))
	t.Cleanup(short.Close)
	env := newTestEnv(t, func(d *Deps) { d.Pending = short })

	start := time.Now()
	w := env.do(http.MethodPut, "/register", `{"username":"ada","password":"x"}`, "")
	elapsed := time.Since(start)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != pending.TimeoutMessage {
		t.Errorf("body = %q, want %q", w.Body.String(), pending.TimeoutMessage)
	}
	if w.Header().Get(correlationHeader) == "" {
		t.Error("timeout outcome carries no correlation id")
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("answered after %v, before the 50ms bound", elapsed)
	}
	if n := short.Len(); n != 0 {
		t.Errorf("registry holds %d entries after expiry", n)
	}
}

func TestRegister_PublishFailure(t *testing.T) {
	tests := []struct {
		name string
		kind broker.PublishErrorKind
	}{
		{"broker unreachable", broker.ConnectFailed},
		{"channel failure", broker.ChannelFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.pub.failOn(broker.RouteDocuments, &broker.PublishError{
				Kind:       tt.kind,
				RoutingKey: broker.RouteDocuments,
				Err:        errors.New("refused"),
			})

			w := env.do(http.MethodPut, "/register", `{"username":"ada","password":"x"}`, "")
			if w.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
			}
			var e Error
			if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if e.Message != "Unable to queue REGISTRATION" {
				t.Errorf("message = %q", e.Message)
			}
			if n := env.registry.Len(); n != 0 {
				t.Errorf("registry holds %d entries after failed publish", n)
			}
		})
	}
}

func TestRegister_StatFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t)
	env.pub.failOn(broker.RouteCounters, &broker.PublishError{Kind: broker.ConnectFailed, Err: errors.New("down")})
	env.completeWith(409, "duplicate username", "ada")

	w := env.do(http.MethodPut, "/register", `{"username":"ada","password":"x"}`, "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestRegister_ClientGoneReleasesEntry(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.pub.onPublish = func(routingKey string, _ broker.Envelope) {
		if routingKey == broker.RouteDocuments {
			cancel()
		}
	}

	req := httptest.NewRequest(http.MethodPut, "/register", strings.NewReader(`{"username":"ada","password":"x"}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if n := env.registry.Len(); n != 0 {
		t.Errorf("registry holds %d entries after client left", n)
	}

	// A completion arriving afterwards finds nothing.
	cmds := env.pub.on(broker.RouteDocuments)
	if len(cmds) != 1 {
		t.Fatalf("published %d commands, want 1", len(cmds))
	}
	if env.router.OnCompletion(completion.Event{
		CorrelationID: cmds[0].CorrelationID(),
		ActionKind:    "REGISTRATION",
		OutcomeCode:   201,
		Username:      "ada",
	}) {
		t.Error("late completion was delivered")
	}
}

func TestRegister_ShutdownOutcome(t *testing.T) {
	env := newTestEnv(t)
	env.pub.onPublish = func(routingKey string, _ broker.Envelope) {
		if routingKey == broker.RouteDocuments {
			env.registry.Close()
		}
	}

	w := env.do(http.MethodPut, "/register", `{"username":"ada","password":"x"}`, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if w.Body.String() != pending.ShutdownMessage {
		t.Errorf("body = %q, want %q", w.Body.String(), pending.ShutdownMessage)
	}

	// Registration after close is refused up front.
	env.settle()
	env.pub.onPublish = nil
	w = env.do(http.MethodPut, "/register", `{"username":"bob","password":"x"}`, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status after close = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ─── Courses ───────────────────────────────────────────────────────

const validCourse = `{"name":"Go","sources":["https://go.dev"],"description":"Learn Go","shortDescription":"Go","wish":"w1"}`

func TestCreateCourse_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no name", `{"sources":["a"],"description":"d"}`, msgCourseNameMissing},
		{"no sources", `{"name":"Go","description":"d"}`, msgCourseNoSources},
		{"empty sources string", `{"name":"Go","sources":"","description":"d"}`, msgCourseNoSources},
		{"null sources", `{"name":"Go","sources":null,"description":"d"}`, msgCourseNoSources},
		{"no description", `{"name":"Go","sources":["a"]}`, msgCourseNoDescription},
		{"name checked first", `{}`, msgCourseNameMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			// Validation runs before the token check.
			w := env.do(http.MethodPut, "/course", tt.body, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if w.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.want)
			}
			env.settle()
			if n := len(env.pub.messages); n != 0 {
				t.Errorf("published %d messages, want 0", n)
			}
		})
	}
}

func TestCreateCourse_Unauthorized(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(http.MethodPut, "/course", validCourse, tt.token)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			var body messageBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Message == "" {
				t.Error("401 carries no message")
			}
			env.settle()
			if n := len(env.pub.messages); n != 0 {
				t.Errorf("published %d messages, want 0", n)
			}
		})
	}
}

func TestCreateCourse_Created(t *testing.T) {
	env := newTestEnv(t)
	env.completeWith(201, "Course created", "")

	w := env.do(http.MethodPut, "/course", validCourse, "Bearer "+env.token(t, "ada"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if w.Body.String() != "Course created" {
		t.Errorf("body = %q", w.Body.String())
	}

	cmds := env.pub.on(broker.RouteDocuments)
	if len(cmds) != 1 {
		t.Fatalf("published %d commands, want 1", len(cmds))
	}
	data, err := cmds[0].Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"action":           "COURSE_CREATE",
		"author":           "ada",
		"name":             "Go",
		"description":      "Learn Go",
		"shortDescription": "Go",
		"wish":             "w1",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if sources, ok := got["sources"].([]any); !ok || len(sources) != 1 {
		t.Errorf("sources = %v, want one entry", got["sources"])
	}
	if got["uuid"] == nil || got["uuid"] != got["correlationId"] {
		t.Errorf("uuid %v / correlationId %v", got["uuid"], got["correlationId"])
	}

	env.settle()
	stats := env.pub.on(broker.RouteCounters)
	if len(stats) != 1 || stats[0].Action() != "COURSE_CREATE" || stats[0]["username"] != "ada" {
		t.Errorf("stat messages = %v", stats)
	}
}

func TestCreateCourse_RelaysUntypedFields(t *testing.T) {
	tests := []struct {
		name      string
		extra     string
		wantWish  any
		wantShort any
	}{
		{"number and object", `,"wish":12,"shortDescription":{"en":"Go"}`, float64(12), map[string]any{"en": "Go"}},
		{"null wish", `,"wish":null,"shortDescription":"Go"`, nil, "Go"},
		{"omitted", ``, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.completeWith(201, "Course created", "")

			body := `{"name":"Go","sources":["https://go.dev"],"description":"Learn Go"` + tt.extra + `}`
			w := env.do(http.MethodPut, "/course", body, env.token(t, "ada"))
			if w.Code != http.StatusCreated {
				t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
			}

			cmds := env.pub.on(broker.RouteDocuments)
			if len(cmds) != 1 {
				t.Fatalf("published %d commands, want 1", len(cmds))
			}
			data, err := cmds[0].Encode()
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got["wish"], tt.wantWish) {
				t.Errorf("wish = %#v, want %#v", got["wish"], tt.wantWish)
			}
			if !reflect.DeepEqual(got["shortDescription"], tt.wantShort) {
				t.Errorf("shortDescription = %#v, want %#v", got["shortDescription"], tt.wantShort)
			}
			if tt.extra == "" {
				if _, ok := got["wish"]; ok {
					t.Error("omitted wish was relayed")
				}
			}
		})
	}
}

func TestCreateOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		code       int
		wantStatus int
		wantBody   string
	}{
		{"course conflict", "/course", validCourse, 409, http.StatusConflict, "worker says"},
		{"course continue", "/course", validCourse, 100, http.StatusAccepted, "worker says"},
		{"course unknown", "/course", validCourse, 418, http.StatusInternalServerError, "Unhandled course creation outcome 418"},
		{"wish created", "/wish", `{"name":"Rust","details":"please"}`, 201, http.StatusCreated, "worker says"},
		{"wish unknown", "/wish", `{"name":"Rust","details":"please"}`, 204, http.StatusInternalServerError, "Unhandled wish creation outcome 204"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.completeWith(tt.code, "worker says", "")

			w := env.do(http.MethodPut, tt.path, tt.body, env.token(t, "ada"))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestUnknownCompletionAction(t *testing.T) {
	env := newTestEnv(t)
	env.pub.onPublish = func(routingKey string, cmd broker.Envelope) {
		if routingKey != broker.RouteDocuments {
			return
		}
		env.router.OnCompletion(completion.Event{
			CorrelationID: cmd.CorrelationID(),
			ActionKind:    "MYSTERY",
			OutcomeCode:   201,
		})
	}

	w := env.do(http.MethodPut, "/wish", `{"name":"Rust","details":"please"}`, env.token(t, "ada"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if w.Body.String() != completion.UnexpectedActionMessage {
		t.Errorf("body = %q", w.Body.String())
	}
}

// ─── Fire-and-forget commands ──────────────────────────────────────

func TestQueuedCommands(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantBody   string
		wantAction string
		wantField  string // field carrying the path id
		wantStat   map[string]any
	}{
		{
			name: "course update", method: http.MethodPost, path: "/course/c1", body: validCourse,
			wantBody: msgCourseUpdateQueued, wantAction: "COURSE_UPDATE", wantField: "courseId",
			wantStat: map[string]any{"id": "c1"},
		},
		{
			name: "course delete", method: http.MethodDelete, path: "/course/c1",
			wantBody: msgCourseDeleteQueued, wantAction: "COURSE_DELETE", wantField: "courseId",
			wantStat: map[string]any{"username": "ada"},
		},
		{
			name: "wish update", method: http.MethodPost, path: "/wish/w1", body: `{"name":"Rust","details":"please"}`,
			wantBody: msgWishUpdateQueued, wantAction: "WISH_UPDATE", wantField: "wishId",
			wantStat: map[string]any{"id": "w1"},
		},
		{
			name: "wish delete", method: http.MethodDelete, path: "/wish/w1",
			wantBody: msgWishDeleteQueued, wantAction: "WISH_DELETE", wantField: "wishId",
			wantStat: map[string]any{"username": "ada"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(tt.method, tt.path, tt.body, env.token(t, "ada"))
			if w.Code != http.StatusAccepted {
				t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}

			cmds := env.pub.on(broker.RouteDocuments)
			if len(cmds) != 1 {
				t.Fatalf("published %d commands, want 1", len(cmds))
			}
			if cmds[0].Action() != tt.wantAction {
				t.Errorf("action = %q, want %q", cmds[0].Action(), tt.wantAction)
			}
			if cmds[0][tt.wantField] == nil {
				t.Errorf("command lacks %s: %v", tt.wantField, cmds[0])
			}
			if cmds[0].CorrelationID() != "" {
				t.Error("queued command carries a correlation id")
			}
			if n := env.registry.Len(); n != 0 {
				t.Errorf("registry holds %d entries", n)
			}

			env.settle()
			stats := env.pub.on(broker.RouteCounters)
			if len(stats) != 1 || stats[0].Action() != tt.wantAction {
				t.Fatalf("stat messages = %v", stats)
			}
			for k, v := range tt.wantStat {
				if stats[0][k] != v {
					t.Errorf("stat %s = %v, want %v", k, stats[0][k], v)
				}
			}
		})
	}
}

func TestQueuedCommand_PublishFailure(t *testing.T) {
	env := newTestEnv(t)
	env.pub.failOn(broker.RouteDocuments, &broker.PublishError{Kind: broker.ChannelFailed, Err: errors.New("nack")})

	w := env.do(http.MethodDelete, "/wish/w1", "", env.token(t, "ada"))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(w.Body.String(), "Unable to queue WISH_DELETE") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestWish_Validation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"create without details", http.MethodPut, "/wish", `{"name":"Rust"}`},
		{"create without name", http.MethodPut, "/wish", `{"details":"please"}`},
		{"update without details", http.MethodPost, "/wish/w1", `{"name":"Rust"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(tt.method, tt.path, tt.body, env.token(t, "ada"))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if w.Body.String() != msgWishIncomplete {
				t.Errorf("body = %q, want %q", w.Body.String(), msgWishIncomplete)
			}
		})
	}
}

func TestCreateWish_Command(t *testing.T) {
	env := newTestEnv(t)
	env.completeWith(201, "Wish created", "")

	w := env.do(http.MethodPut, "/wish", `{"name":"Rust","details":"please"}`, env.token(t, "bob"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	cmds := env.pub.on(broker.RouteDocuments)
	if len(cmds) != 1 {
		t.Fatalf("published %d commands, want 1", len(cmds))
	}
	cmd := cmds[0]
	if cmd.Action() != "WISH_CREATE" || cmd["wisher"] != "bob" || cmd["name"] != "Rust" || cmd["details"] != "please" {
		t.Errorf("command = %v", cmd)
	}
	if cmd["uuid"] == nil {
		t.Error("command has no uuid")
	}
}

// ─── Completion callback ───────────────────────────────────────────

func TestRespond_AlwaysOK(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"garbage", `not json`},
		{"no correlation id", `{"actionKind":"REGISTRATION","outcomeCode":201}`},
		{"unknown id", `{"correlationId":"nobody","actionKind":"REGISTRATION","outcomeCode":409}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if w := env.do(http.MethodPost, "/respond", tt.body, ""); w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestRespond_ResolvesPendingEntry(t *testing.T) {
	env := newTestEnv(t)

	sink := pending.NewChanSink()
	if err := env.registry.Register("id-1", sink, pending.Registration, time.Second); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Worker field spellings.
	w := env.do(http.MethodPost, "/respond", `{"uuid":"id-1","action":"REGISTRATION","statusCode":409,"message":"duplicate username"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	select {
	case out := <-sink.C():
		if out.Status != http.StatusConflict || out.Body != "duplicate username" {
			t.Errorf("outcome = %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatal("no outcome delivered")
	}

	// A duplicate callback is a no-op.
	if w := env.do(http.MethodPost, "/respond", `{"correlationId":"id-1","actionKind":"REGISTRATION","outcomeCode":201,"username":"ada"}`, ""); w.Code != http.StatusOK {
		t.Errorf("duplicate status = %d, want %d", w.Code, http.StatusOK)
	}
}

// ─── Outcome writer ────────────────────────────────────────────────

func TestWriteOutcome(t *testing.T) {
	tests := []struct {
		name       string
		out        pending.Outcome
		wantStatus int
	}{
		{"created", pending.Outcome{Status: 201, Body: "tok"}, http.StatusCreated},
		{"processing maps to accepted", pending.Outcome{Status: 102, Body: "busy"}, http.StatusAccepted},
		{"continue maps to accepted", pending.Outcome{Status: 100, Body: "busy"}, http.StatusAccepted},
		{"conflict", pending.Outcome{Status: 409, Body: "dup"}, http.StatusConflict},
		{"zero maps to accepted", pending.Outcome{Body: "?"}, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeOutcome(w, tt.out)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.out.Body {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.out.Body)
			}
		})
	}
}

func TestPresent(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{``, false},
		{`null`, false},
		{`""`, false},
		{`false`, false},
		{`0`, false},
		{`[]`, true},
		{`["a"]`, true},
		{`"a"`, true},
	}
	for _, tt := range tests {
		if got := present(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("present(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
