package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// arguments holds a field's coerced argument values.
type arguments map[string]any

type argumentError struct {
	name string
}

func (e *argumentError) Error() string {
	return fmt.Sprintf("invalid argument %q", e.name)
}

func (a arguments) integer(name string) (int, bool) {
	switch v := a[name].(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), v == float64(int(v))
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func (a arguments) id(name string) (uint, error) {
	n, ok := a.integer(name)
	if !ok || n <= 0 {
		return 0, &argumentError{name: name}
	}
	return uint(n), nil
}

func (a arguments) str(name string) string {
	s, _ := a[name].(string)
	return s
}

// optStr is nil when the argument was left out or null.
func (a arguments) optStr(name string) *string {
	s, ok := a[name].(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	return &s
}

func (a arguments) optBool(name string) *bool {
	b, ok := a[name].(bool)
	if !ok {
		return nil
	}
	return &b
}

func (a arguments) object(name string) arguments {
	m, _ := a[name].(map[string]any)
	return arguments(m)
}
