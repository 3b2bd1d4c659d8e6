// Package gateway is the typed request/response wrapper around the core
// service call boundary. It validates response shapes and normalizes every
// transport failure into a single CommandError form, so callers above this
// layer branch on stable error codes only.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tildaslashalef/incidentdeck/internal/loggy"
)

// Transport delivers a single named operation to the core service and
// returns the raw response payload. Implementations: HTTPTransport for a
// remote core service, and the in-process local core.
type Transport interface {
	Roundtrip(ctx context.Context, op string, req any) (json.RawMessage, error)
}

// Invoker is the call surface the rest of the client depends on.
type Invoker interface {
	Call(ctx context.Context, op string, req any, out any) error
}

// shapeValidator is implemented by response types that carry required fields.
type shapeValidator interface {
	Validate() error
}

// Gateway decodes transport payloads into typed responses and normalizes
// errors. It holds no workspace state of its own.
type Gateway struct {
	transport Transport
	logger    *loggy.Logger
}

// New creates a gateway over the given transport
func New(transport Transport, logger *loggy.Logger) *Gateway {
	return &Gateway{
		transport: transport,
		logger:    logger,
	}
}

// Call invokes a named operation. out may be nil for operations whose
// response the caller does not need. A response that decodes but fails
// shape validation is reported as SCHEMA_VIOLATION, distinct from any
// error the core service itself raised.
func (g *Gateway) Call(ctx context.Context, op string, req any, out any) error {
	requestID := loggy.GetRequestID(ctx)
	if requestID == "" {
		requestID = loggy.NewRequestID()
		ctx = loggy.WithRequestID(ctx, requestID)
	}

	raw, err := g.transport.Roundtrip(ctx, op, req)
	if err != nil {
		cmdErr := Normalize(err)
		g.logger.Warn("Command failed",
			"op", op,
			"request_id", requestID,
			"code", cmdErr.Code,
			"retryable", cmdErr.Retryable,
		)
		return cmdErr
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		g.logger.Error("Command response failed to decode",
			"op", op,
			"request_id", requestID,
			"error", err,
		)
		return NewCommandError(CodeSchemaViolation, fmt.Sprintf("response for %s did not match the expected shape", op)).
			WithDetails(err.Error())
	}

	if v, ok := out.(shapeValidator); ok {
		if err := v.Validate(); err != nil {
			g.logger.Error("Command response failed shape validation",
				"op", op,
				"request_id", requestID,
				"error", err,
			)
			return NewCommandError(CodeSchemaViolation, fmt.Sprintf("response for %s did not match the expected shape", op)).
				WithDetails(err.Error())
		}
	}

	g.logger.Debug("Command completed", "op", op, "request_id", requestID)
	return nil
}

func errMissingField(field string) error {
	return fmt.Errorf("missing required field %q", field)
}
