package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidJSON      = errors.New("Message is not valid JSON")
	ErrMissingEnvelope  = errors.New("Message is missing the heos envelope")
	ErrMalformedCommand = errors.New("Command is malformed, expected <group>/<name>")
	ErrUnknownResult    = errors.New("Message carries an unknown result")
	ErrMissingScheme    = errors.New("Command is missing the heos:// scheme")
	ErrEmptyLine        = errors.New("Line is empty")
)

// ParseError is returned when a line cannot be decoded. The connection
// that produced it stays usable.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Failed to parse '%s': %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(line []byte, err error) error {
	return &ParseError{Line: string(RemoveTrailingCR(line)), Err: err}
}

// ProtocolError is a failure reported by the cluster itself.
type ProtocolError struct {
	Group   Group
	Name    string
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s/%s failed with eid=%s: %s", e.Group, e.Name, e.Code, e.Message)
}
