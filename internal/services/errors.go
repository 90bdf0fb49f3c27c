package services

import (
	"errors"
	"strings"
)

// Markers classify failures independently of where they happened.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Error is a classified failure with the component and operation that hit it.
// errors.Is matches both the marker and the underlying cause.
type Error struct {
	Marker    error
	Component string
	Operation string
	Detail    string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	b.WriteString(": ")
	parts := make([]string, 0, 3)
	for _, part := range []string{e.Component, e.Operation, e.Detail} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		b.WriteString("service failure")
	} else {
		b.WriteString(strings.Join(parts, ": "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap tags err with marker and context. A nil marker means ErrTransient.
func Wrap(marker error, component, operation, detail string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{Marker: marker, Component: component, Operation: operation, Detail: detail, Err: err}
}

// IsConfiguration reports whether err stems from settings or inputs the user
// must fix before retrying (missing templates, bad placeholders, unreadable
// content, incomplete provider settings).
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrValidation)
}
