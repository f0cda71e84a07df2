package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Model output is best-effort: the decoders below accept whatever JSON type the
// model produced for a field and never fail on shape.

// Text is a nullable string. Strings decode as-is, numbers and booleans keep
// their literal form, objects and arrays keep their compact JSON text, and
// null leaves the value unset.
type Text struct {
	value string
	set   bool
}

// NewText returns a set Text.
func NewText(s string) Text {
	return Text{value: s, set: true}
}

func (t Text) String() string { return t.value }

// IsSet reports whether the field held a non-null value.
func (t Text) IsSet() bool { return t.set }

// Known reports whether the field carries a usable value, treating empty
// strings and the "Unknown" placeholder as absent.
func (t Text) Known() bool {
	v := strings.TrimSpace(t.value)
	return t.set && v != "" && !strings.EqualFold(v, "unknown") && !strings.EqualFold(v, "null")
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.value)
}

func (t *Text) UnmarshalJSON(data []byte) error {
	s, ok := looseScalar(data)
	*t = Text{value: s, set: ok}
	return nil
}

// Flag is a lenient boolean accepting true/false and their string forms.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s, _ := looseScalar(data)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// StringList is a lenient list of strings. A bare string decodes to a
// one-element list and non-string elements keep their JSON text.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] != '[' {
		if s, ok := looseScalar(data); ok && s != "" {
			*l = StringList{s}
		} else {
			*l = nil
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		*l = nil
		return nil
	}
	out := make(StringList, 0, len(items))
	for _, item := range items {
		if s, ok := looseScalar(item); ok && s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func looseScalar(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", false
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s, true
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return string(data), true
	}
	return compact.String(), true
}
