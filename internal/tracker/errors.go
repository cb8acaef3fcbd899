package tracker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrForbidden is returned when the acting user lacks a permission.
var ErrForbidden = errors.New("permission denied")

func forbidden(action string) error {
	return fmt.Errorf("%s: %w", action, ErrForbidden)
}

// ValidationError reports user-facing problems with submitted fields.
// Nothing is written when a ValidationError is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// add records the first problem reported for field.
func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// err returns e when any field failed, or nil.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// FieldError returns the message recorded for field in err, if err is a
// ValidationError.
func FieldError(err error, field string) (string, bool) {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return "", false
	}
	msg, ok := ve.Fields[field]
	return msg, ok
}
