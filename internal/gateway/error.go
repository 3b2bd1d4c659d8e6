package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Stable client-side codes. Everything else comes from the core service.
const (
	// CodeSchemaViolation marks a response that decoded but did not match
	// the expected shape. Distinct from any error the core service raises.
	CodeSchemaViolation = "SCHEMA_VIOLATION"

	// CodeTransportFailed marks a call that never produced a structured
	// error (connection refused, timeout, unparseable body).
	CodeTransportFailed = "TRANSPORT_FAILED"
)

// CommandError is the single structured error shape surfaced by the gateway.
// Callers branch on Code only, never on how the error arrived on the wire.
type CommandError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewCommandError creates a CommandError with the given code and message
func NewCommandError(code, message string) *CommandError {
	return &CommandError{Code: code, Message: message}
}

// WithDetails returns a copy of the error with details attached
func (e *CommandError) WithDetails(details string) *CommandError {
	out := *e
	out.Details = details
	return &out
}

// WithRetryable returns a copy of the error with the retryable flag set
func (e *CommandError) WithRetryable(retryable bool) *CommandError {
	out := *e
	out.Retryable = retryable
	return &out
}

// AsCommandError extracts a CommandError from an error chain, if present.
func AsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given stable error code.
func IsCode(err error, code string) bool {
	if cmdErr, ok := AsCommandError(err); ok {
		return cmdErr.Code == code
	}
	return false
}

// errEnvelope is the wrapper shape some transports use: {"error": {...}}.
type errEnvelope struct {
	Error *CommandError `json:"error"`
}

// Normalize converts any value rejected by a transport into a CommandError.
// Four wire shapes are recognized: a CommandError itself, an error wrapping
// one, a JSON-encoded string containing one (bare or under an "error" key),
// and a wrapper object with an "error" field. Anything else becomes a
// best-effort TRANSPORT_FAILED error so the caller always has a message.
func Normalize(v any) *CommandError {
	switch val := v.(type) {
	case nil:
		return NewCommandError(CodeTransportFailed, "command failed with no error value")

	case *CommandError:
		if val != nil {
			return val
		}
		return NewCommandError(CodeTransportFailed, "command failed with nil error value")

	case CommandError:
		return &val

	case error:
		if cmdErr, ok := AsCommandError(val); ok {
			return cmdErr
		}
		// The error text itself may be a JSON-encoded structured error.
		if cmdErr := fromJSONText(val.Error()); cmdErr != nil {
			return cmdErr
		}
		return NewCommandError(CodeTransportFailed, val.Error())

	case string:
		if cmdErr := fromJSONText(val); cmdErr != nil {
			return cmdErr
		}
		return NewCommandError(CodeTransportFailed, val)

	case []byte:
		if cmdErr := fromJSONText(string(val)); cmdErr != nil {
			return cmdErr
		}
		return NewCommandError(CodeTransportFailed, string(val))

	default:
		// Last-resort stringification so the UI never shows an opaque value.
		return NewCommandError(CodeTransportFailed, fmt.Sprint(val))
	}
}

// fromJSONText attempts to decode a structured error from a JSON string,
// accepting both the bare shape and the {"error": {...}} wrapper.
func fromJSONText(text string) *CommandError {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var wrapped errEnvelope
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil && wrapped.Error != nil && wrapped.Error.Code != "" {
		return wrapped.Error
	}

	var direct CommandError
	if err := json.Unmarshal([]byte(trimmed), &direct); err == nil && direct.Code != "" {
		return &direct
	}

	return nil
}
