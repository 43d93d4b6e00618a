// Package result recovers nit's JSON result object from process output and
// decodes it into typed shapes per command family.
//
// In --ci mode nit may print human-readable lines before its JSON payload.
// The payload always starts at the beginning of a line and runs to the end of
// the stream.
package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

// PreviewLimit caps the bytes of raw output carried by a ParseError.
const PreviewLimit = 200

// ErrNoJSON is matched by errors.Is when no JSON object could be recovered.
var ErrNoJSON = errors.New("no JSON object found")

// ParseError reports a stream with no recoverable JSON object. Preview holds at
// most PreviewLimit bytes from the start of the stream.
type ParseError struct {
	Preview   string
	Truncated bool
}

func (e *ParseError) Error() string {
	suffix := ""
	if e.Truncated {
		suffix = "..."
	}
	return fmt.Sprintf("no JSON found in output: %q%s", e.Preview, suffix)
}

func (e *ParseError) Is(target error) bool { return target == ErrNoJSON }

// Extract returns the JSON object embedded in stream.
//
// The whole stream is tried first. After that, every line whose left-trimmed
// content starts with '{' is tried in order as the start of a payload running
// to the end of the stream; the first that decodes to exactly one object wins.
// A failed candidate never stops later ones, so brace-led log lines ahead of
// the payload are skipped over. Payloads beginning mid-line are not recovered.
func Extract(stream []byte) (map[string]any, error) {
	if obj, ok := decodeObject(stream); ok {
		return obj, nil
	}

	offset := 0
	for _, line := range bytes.SplitAfter(stream, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeftFunc(line, unicode.IsSpace), []byte("{")) {
			if obj, ok := decodeObject(stream[offset:]); ok {
				return obj, nil
			}
		}
		offset += len(line)
	}

	p, truncated := preview(stream, PreviewLimit)
	return nil, &ParseError{Preview: p, Truncated: truncated}
}

// ExtractString is Extract for captured string output.
func ExtractString(s string) (map[string]any, error) {
	return Extract([]byte(s))
}

// decodeObject succeeds only when data holds one JSON object and nothing but
// whitespace after it.
func decodeObject(data []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok && obj != nil
}

func preview(data []byte, limit int) (string, bool) {
	if len(data) <= limit {
		return string(data), false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return string(data[:cut]), true
}
