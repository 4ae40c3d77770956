package embed

import (
	"encoding/json"
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestParseInputType(t *testing.T) {
	tests := []struct {
		name    string
		raw     *string
		want    InputType
		wantErr bool
	}{
		{"absent", nil, InputTypeUnspecified, false},
		{"query", strPtr("query"), InputTypeQuery, false},
		{"passage", strPtr("passage"), InputTypePassage, false},
		{"wrong case", strPtr("Query"), InputTypeUnspecified, true},
		{"empty string", strPtr(""), InputTypeUnspecified, true},
		{"unknown", strPtr("document"), InputTypeUnspecified, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInputType(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInputType) {
					t.Fatalf("expected ErrInvalidInputType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInputTypeString(t *testing.T) {
	if InputTypeQuery.String() != "query" || InputTypePassage.String() != "passage" || InputTypeUnspecified.String() != "" {
		t.Error("unexpected InputType string values")
	}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantTexts  []string
		wantSingle bool
		wantErr    bool
	}{
		{name: "single string", raw: `"hello"`, wantTexts: []string{"hello"}, wantSingle: true},
		{name: "empty string stays one text", raw: `""`, wantTexts: []string{""}, wantSingle: true},
		{name: "list", raw: `["a", "b", "c"]`, wantTexts: []string{"a", "b", "c"}},
		{name: "empty list", raw: `[]`, wantTexts: []string{}},
		{name: "padded", raw: "  [\"x\"] ", wantTexts: []string{"x"}},
		{name: "null", raw: `null`, wantErr: true},
		{name: "missing", raw: ``, wantErr: true},
		{name: "number", raw: `42`, wantErr: true},
		{name: "object", raw: `{"text":"a"}`, wantErr: true},
		{name: "mixed list", raw: `["a", 1]`, wantErr: true},
		{name: "list with null", raw: `["a", null]`, wantErr: true},
		{name: "nested list", raw: `[["a"]]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseInput(json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if in.IsSingle() != tt.wantSingle {
				t.Errorf("IsSingle = %v, want %v", in.IsSingle(), tt.wantSingle)
			}
			got := in.Texts()
			if len(got) != len(tt.wantTexts) {
				t.Fatalf("got %d texts, want %d", len(got), len(tt.wantTexts))
			}
			for i := range got {
				if got[i] != tt.wantTexts[i] {
					t.Errorf("text %d: got %q, want %q", i, got[i], tt.wantTexts[i])
				}
			}
		})
	}
}

func TestListInputNil(t *testing.T) {
	if texts := ListInput(nil).Texts(); texts == nil || len(texts) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", texts)
	}
}

func TestApplyPrefix(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		inputType InputType
		want      string
	}{
		{"query", "what is go", InputTypeQuery, "query: what is go"},
		{"passage", "Go is a language.", InputTypePassage, "passage: Go is a language."},
		{"unspecified", "plain", InputTypeUnspecified, "plain"},
		{"empty query", "", InputTypeQuery, "query: "},
		{"already prefixed", "query: x", InputTypeQuery, "query: query: x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyPrefix(tt.text, tt.inputType); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
