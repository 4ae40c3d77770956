package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeDetail(t *testing.T, body io.Reader) string {
	t.Helper()
	var eb ErrorBody
	if err := json.NewDecoder(body).Decode(&eb); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return eb.Detail
}

func TestFail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus int
	}{
		{"client error", http.StatusBadRequest, http.StatusBadRequest},
		{"payload too large", http.StatusRequestEntityTooLarge, http.StatusRequestEntityTooLarge},
		{"zero defaults to 500", 0, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Fail(discardLogger(), rec, "input cannot be empty", errors.New("cause"), tt.status)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
			if got := decodeDetail(t, rec.Body); got != "input cannot be empty" {
				t.Errorf("unexpected detail %q", got)
			}
		})
	}
}

func TestFailLogsServerErrorsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	Fail(log, httptest.NewRecorder(), "internal server error", errors.New("tei down"), http.StatusInternalServerError)

	if !strings.Contains(buf.String(), `"level":"ERROR"`) || !strings.Contains(buf.String(), "tei down") {
		t.Errorf("unexpected log line %s", buf.String())
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler("intfloat/e5-base-v2")(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["model"] != "intfloat/e5-base-v2" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRouterRecoversPanics(t *testing.T) {
	r := NewRouter(discardLogger())
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec.Body); got != "internal server error" {
		t.Errorf("unexpected detail %q", got)
	}
}

func TestRouterLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter(slog.New(slog.NewJSONHandler(&buf, nil)))
	r.Get("/health", HealthHandler("m"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	line := buf.String()
	for _, want := range []string{`"msg":"request"`, `"path":"/health"`, `"status":200`, `"request_id"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

type sample struct {
	Input     string  `json:"input" validate:"required"`
	InputType *string `json:"input_type" validate:"omitempty,oneof=query passage"`
}

func TestValidationMessage(t *testing.T) {
	bad := "document"
	tests := []struct {
		name    string
		value   sample
		wantMsg string
	}{
		{"missing required", sample{}, "input: field required"},
		{"bad enum", sample{Input: "x", InputType: &bad}, "input_type: must be one of: query, passage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validator.Struct(tt.value)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := validationMessage(err); got != tt.wantMsg {
				t.Errorf("got %q, want %q", got, tt.wantMsg)
			}
		})
	}

	ok := "query"
	if err := Validator.Struct(sample{Input: "x", InputType: &ok}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validator.Struct(sample{Input: "x"}); err != nil {
		t.Errorf("nil input_type should pass: %v", err)
	}
}

func TestValidationMessagePassesThroughOtherErrors(t *testing.T) {
	if got := validationMessage(errors.New("plain")); got != "plain" {
		t.Errorf("got %q", got)
	}
}

func TestValidationErrorWrites422(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(discardLogger(), rec, Validator.Struct(sample{}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec.Body); got != "input: field required" {
		t.Errorf("unexpected detail %q", got)
	}
}
