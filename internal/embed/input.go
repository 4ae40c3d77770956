package embed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// InputType selects the optional prefix convention for retrieval models.
type InputType int

const (
	InputTypeUnspecified InputType = iota
	InputTypeQuery
	InputTypePassage
)

// ErrInvalidInputType reports an input_type outside query/passage.
var ErrInvalidInputType = errors.New("input_type must be one of: query, passage")

// ParseInputType maps the wire value to an InputType. nil means unspecified.
func ParseInputType(raw *string) (InputType, error) {
	if raw == nil {
		return InputTypeUnspecified, nil
	}
	switch *raw {
	case "query":
		return InputTypeQuery, nil
	case "passage":
		return InputTypePassage, nil
	default:
		return InputTypeUnspecified, fmt.Errorf("%w (got %q)", ErrInvalidInputType, *raw)
	}
}

func (t InputType) String() string {
	switch t {
	case InputTypeQuery:
		return "query"
	case InputTypePassage:
		return "passage"
	default:
		return ""
	}
}

// ErrInvalidInput reports an input that is neither a string nor a list of strings.
var ErrInvalidInput = errors.New("input must be a string or an array of strings")

// Input is the caller-chosen shape of the texts: one string or a list.
type Input struct {
	single *string
	many   []string
}

// SingleInput wraps one text.
func SingleInput(text string) Input {
	return Input{single: &text}
}

// ListInput wraps an ordered list of texts.
func ListInput(texts []string) Input {
	if texts == nil {
		texts = []string{}
	}
	return Input{many: texts}
}

// ParseInput decodes the raw JSON value of the input field.
func ParseInput(raw json.RawMessage) (Input, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Input{}, fmt.Errorf("%w: field required", ErrInvalidInput)
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return SingleInput(s), nil
	case '[':
		var list []*string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		texts := make([]string, len(list))
		for i, s := range list {
			if s == nil {
				return Input{}, fmt.Errorf("%w: item %d is null", ErrInvalidInput, i)
			}
			texts[i] = *s
		}
		return ListInput(texts), nil
	default:
		return Input{}, ErrInvalidInput
	}
}

// IsSingle reports whether the caller sent a bare string.
func (in Input) IsSingle() bool {
	return in.single != nil
}

// Texts returns the ordered sequence every downstream step works on.
func (in Input) Texts() []string {
	if in.single != nil {
		return []string{*in.single}
	}
	return in.many
}
