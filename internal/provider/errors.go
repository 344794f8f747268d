package provider

import (
	"fmt"
	"strings"
)

// UnknownBackendError is returned when a provider name was never registered.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Name)
}

// DuplicateBackendError is returned when a name is registered twice. This is
// a programming error and should fail process startup.
type DuplicateBackendError struct {
	Name string
}

func (e *DuplicateBackendError) Error() string {
	return fmt.Sprintf("provider %q already registered", e.Name)
}

// MissingRequiredConfigError reports which settings keys a provider still
// needs before it can be used.
type MissingRequiredConfigError struct {
	Name    string
	Missing []string
}

func (e *MissingRequiredConfigError) Error() string {
	return fmt.Sprintf("provider %q missing required configuration: %s",
		e.Name, strings.Join(e.Missing, ", "))
}
