// Package jsonrecover pulls a single JSON value out of language-model output
// that may be wrapped in prose or markdown fences.
package jsonrecover

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecoverableFormat is returned when no strategy yields valid JSON.
var ErrUnrecoverableFormat = errors.New("jsonrecover: unrecoverable format")

// Strategy identifies which recovery stage produced the value.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyDirect
	StrategyFence
	StrategyBoundary
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyFence:
		return "fence"
	case StrategyBoundary:
		return "boundary"
	default:
		return "none"
	}
}

// FormatError reports the failure of every strategy together with the last
// parse error encountered.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return ErrUnrecoverableFormat.Error()
	}
	return fmt.Sprintf("%s: %v", ErrUnrecoverableFormat, e.Err)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrUnrecoverableFormat
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Result is a recovered JSON value in compact form.
type Result struct {
	Value    json.RawMessage
	Strategy Strategy
}

// Recover tries, in order: the whole text, the content of the first code
// fence, and the span from the first '{' to the last '}'. The first candidate
// that parses wins.
func Recover(text string) (Result, error) {
	if v, err := parse(text); err == nil {
		return Result{Value: v, Strategy: StrategyDirect}, nil
	}

	if fenced, ok := fenceContent(text); ok {
		if v, err := parse(fenced); err == nil {
			return Result{Value: v, Strategy: StrategyFence}, nil
		}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return Result{}, &FormatError{Err: errors.New("no JSON object boundaries found")}
	}
	v, err := parse(text[start : end+1])
	if err != nil {
		return Result{}, &FormatError{Err: err}
	}
	return Result{Value: v, Strategy: StrategyBoundary}, nil
}

// Into recovers a value and decodes it into out.
func Into(text string, out any) (Strategy, error) {
	res, err := Recover(text)
	if err != nil {
		return StrategyNone, err
	}
	if err := json.Unmarshal(res.Value, out); err != nil {
		return res.Strategy, fmt.Errorf("jsonrecover: decode recovered value: %w", err)
	}
	return res.Strategy, nil
}

func parse(s string) (json.RawMessage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty input")
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// fenceContent returns the text between a ```json fence (or, failing that,
// the first bare ``` fence) and the next fence. A missing closing fence takes
// the remainder of the text.
func fenceContent(text string) (string, bool) {
	const fence = "```"
	open := strings.Index(text, fence+"json")
	skip := len(fence + "json")
	if open == -1 {
		open = strings.Index(text, fence)
		skip = len(fence)
	}
	if open == -1 {
		return "", false
	}
	rest := text[open+skip:]
	if end := strings.Index(rest, fence); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}
