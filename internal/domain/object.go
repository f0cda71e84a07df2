package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// field binds a JSON key to the Go value it decodes into.
type field struct {
	key string
	ptr any
}

var errNotObject = errors.New("domain: value is not a JSON object")

// decodeFields fills each field from the matching key of a JSON object. A key
// whose value has the wrong shape leaves its field at the zero value. Keys not
// bound to a field are returned so they survive a round trip.
func decodeFields(data []byte, fields []field) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, errNotObject
	}
	for _, f := range fields {
		raw, ok := obj[f.key]
		if !ok {
			continue
		}
		_ = json.Unmarshal(raw, f.ptr)
		delete(obj, f.key)
	}
	if len(obj) == 0 {
		return nil, nil
	}
	return obj, nil
}

// encodeFields writes the fields in order followed by the extra keys sorted
// by name.
func encodeFields(fields []field, extra map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	known := make(map[string]bool, len(fields))
	n := 0
	write := func(key string, v any) error {
		value, err := json.Marshal(v)
		if err != nil {
			return err
		}
		name, _ := json.Marshal(key)
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	}
	for _, f := range fields {
		known[f.key] = true
		if err := write(f.key, f.ptr); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
