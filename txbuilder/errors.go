package txbuilder

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownFunction = errors.New("unknown function")

// EncodingError points at the parameter that could not be encoded.
type EncodingError struct {
	Index  int
	Name   string
	Type   string
	Value  interface{}
	Reason string
}

func (e *EncodingError) Error() string {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("parameter %s (%s): %s", name, e.Type, e.Reason)
}

// ConfigurationError carries every problem found in a builder config.
type ConfigurationError struct {
	Errors []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Errors, "; ")
}
