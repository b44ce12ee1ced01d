package completion

import (
	"errors"
	"testing"
)

func TestParseEvent_FieldSpellings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Event
	}{
		{
			name: "gateway spelling",
			raw:  `{"correlationId":"c-1","actionKind":"REGISTRATION","outcomeCode":201,"username":"ada"}`,
			want: Event{CorrelationID: "c-1", ActionKind: "REGISTRATION", OutcomeCode: 201, Username: "ada"},
		},
		{
			name: "worker spelling",
			raw:  `{"uuid":"c-2","action":"COURSE_CREATE","statusCode":409,"message":"duplicate course"}`,
			want: Event{CorrelationID: "c-2", ActionKind: "COURSE_CREATE", OutcomeCode: 409, Message: "duplicate course"},
		},
		{
			name: "both spellings prefer gateway",
			raw:  `{"correlationId":"c-3","uuid":"other","actionKind":"WISH_CREATE","action":"X","outcomeCode":201,"statusCode":500}`,
			want: Event{CorrelationID: "c-3", ActionKind: "WISH_CREATE", OutcomeCode: 201},
		},
		{
			name: "non-string message kept as JSON text",
			raw:  `{"uuid":"c-4","action":"COURSE_CREATE","statusCode":500,"message":{"error":"boom"}}`,
			want: Event{CorrelationID: "c-4", ActionKind: "COURSE_CREATE", OutcomeCode: 500, Message: `{"error":"boom"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if got.CorrelationID != tt.want.CorrelationID ||
				got.ActionKind != tt.want.ActionKind ||
				got.OutcomeCode != tt.want.OutcomeCode ||
				got.Message != tt.want.Message ||
				got.Username != tt.want.Username {
				t.Errorf("ParseEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseEvent_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"broken syntax", `{not json`, ErrMalformedEvent},
		{"truncated", `{"uuid":"a",`, ErrMalformedEvent},
		{"empty", ``, ErrMalformedEvent},
		{"array", `[1,2]`, ErrMalformedEvent},
		{"wrong field type", `{"uuid":"a","statusCode":"201"}`, ErrMalformedEvent},
		{"no correlation id", `{"action":"REGISTRATION","statusCode":201}`, ErrMissingCorrelationID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("ParseEvent(%q) error = %v, want %v", tt.data, err, tt.want)
			}
		})
	}
}

func TestEvent_Subject(t *testing.T) {
	if got := (Event{Username: "ada"}).Subject(); got != "ada" {
		t.Errorf("Subject() = %q, want ada", got)
	}
	if got := (Event{Payload: []byte(`{"username":"grace"}`)}).Subject(); got != "grace" {
		t.Errorf("Subject() from payload = %q, want grace", got)
	}
	if got := (Event{Payload: []byte(`[1,2]`)}).Subject(); got != "" {
		t.Errorf("Subject() from bad payload = %q, want empty", got)
	}
}
