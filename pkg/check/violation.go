// Package check holds the assertions the scenario suite applies to nit's
// output. Validators are independent: each returns nil or a *Violation naming
// what was expected and what nit produced.
package check

import (
	"errors"
	"fmt"
	"strings"
)

// ErrViolation is matched by errors.Is for every *Violation.
var ErrViolation = errors.New("assertion failed")

// StderrLimit bounds how much stderr a diagnostic quotes.
const StderrLimit = 500

// Violation is a failed assertion.
type Violation struct {
	Check    string
	Expected string
	Actual   string
	Detail   string
}

func (v *Violation) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: expected %s, got %s", v.Check, v.Expected, v.Actual)
	if v.Detail != "" {
		b.WriteString(": ")
		b.WriteString(v.Detail)
	}
	return b.String()
}

func (v *Violation) Is(target error) bool { return target == ErrViolation }

func violation(check, expected string, actual any) error {
	return &Violation{Check: check, Expected: expected, Actual: fmt.Sprint(actual)}
}

// Combine returns the first non-nil error.
func Combine(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// number reads a JSON number. Booleans are not numbers.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

func list(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

func describe(v any) string {
	if v == nil {
		return "nothing"
	}
	return fmt.Sprintf("%T %v", v, v)
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := len(s) - limit
	for cut < len(s) && (s[cut]&0xC0) == 0x80 {
		cut++
	}
	return "..." + s[cut:]
}
