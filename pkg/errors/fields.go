package errors

import (
	"fmt"
	"strings"
)

// FieldError describes one invalid input location, e.g. "semester.list[2]".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// FieldErrors is the structured result of boundary validation.
type FieldErrors []FieldError

func (f FieldErrors) Error() string {
	parts := make([]string, len(f))
	for i, fe := range f {
		parts[i] = fmt.Sprintf("%s: %s", fe.Path, fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Add appends a field error.
func (f *FieldErrors) Add(path, message string) {
	*f = append(*f, FieldError{Path: path, Message: message})
}

// OrNil returns nil when there are no field errors so callers can return it directly.
func (f FieldErrors) OrNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}
