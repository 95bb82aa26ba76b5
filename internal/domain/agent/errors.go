package agent

import (
	"errors"
	"fmt"
)

// CallError is a transport, timeout, provider or breaker failure while asking
// an agent for something.
type CallError struct {
	Op      string
	AgentID string
	Err     error
}

func (e *CallError) Error() string {
	if e.AgentID == "" {
		return fmt.Sprintf("agent %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("agent %s (%s): %v", e.Op, e.AgentID, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// ParseError means the agent answered but the structured output was malformed.
type ParseError struct {
	Op  string
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsCallError reports whether err carries a *CallError.
func IsCallError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce)
}

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
