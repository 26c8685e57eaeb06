package llm

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Validator checks a decoded model reply beyond what the JSON shape enforces.
type Validator[T any] func(T) error

// ExtractJSON decodes the JSON object in a model reply into T. The object may
// sit inside a markdown code fence or surrounding prose, and may carry // or
// /* */ comments. Fields T does not declare are rejected, so a reply outside
// the expected schema fails instead of decoding partially. Every failure
// wraps ErrInvalidOutput.
func ExtractJSON[T any](raw string, validate Validator[T]) (T, error) {
	var zero T

	obj := firstObject(fenceBody(raw))
	if obj == "" {
		obj = firstObject(raw)
	}
	if obj == "" {
		return zero, fmt.Errorf("%w: no JSON object in reply", ErrInvalidOutput)
	}

	var out T
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return zero, fmt.Errorf("%w: validation failed: %v", ErrInvalidOutput, err)
		}
	}
	return out, nil
}

// fenceBody returns the contents of the first code fence in s, without the
// language tag line, or s itself when there is no fence.
func fenceBody(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	body := s[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// firstObject returns the first balanced {...} in s with comments dropped.
// Braces and slashes inside string literals are kept as text. An object
// that never closes yields "".
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	var b strings.Builder
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				return ""
			}
			i += nl - 1
			continue
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return ""
			}
			i += end + 3
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
		}
		b.WriteByte(c)
		if depth == 0 {
			return b.String()
		}
	}
	return ""
}
