package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

// EnvelopeBuilder provides a fluent API for building envelope responses.
// The HTTP status line always matches the envelope status.
type EnvelopeBuilder struct {
	env Envelope
}

// NewEnvelope starts a 200 response with a null result.
func NewEnvelope() *EnvelopeBuilder {
	return &EnvelopeBuilder{env: Envelope{Status: http.StatusOK}}
}

func (b *EnvelopeBuilder) Status(code int) *EnvelopeBuilder {
	b.env.Status = code
	return b
}

// Message sets the message, formatting it when args are given.
func (b *EnvelopeBuilder) Message(format string, args ...any) *EnvelopeBuilder {
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	b.env.Message = format
	return b
}

func (b *EnvelopeBuilder) Result(v any) *EnvelopeBuilder {
	b.env.Result = v
	return b
}

// Envelope returns the envelope built so far.
func (b *EnvelopeBuilder) Envelope() Envelope {
	return b.env
}

// Write encodes the envelope to w. An unencodable result degrades to a 500
// envelope so the client always receives the uniform shape.
func (b *EnvelopeBuilder) Write(w http.ResponseWriter) {
	body, err := json.Marshal(b.env)
	if err != nil {
		slog.Error("Failed to encode response envelope", "status", b.env.Status, "error", err)
		b.env = Envelope{Status: http.StatusInternalServerError, Message: "internal server error"}
		body, _ = json.Marshal(b.env)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.env.Status)
	_, _ = w.Write(body)
}

// Created is a convenience for 201 responses.
func Created(result any, format string, args ...any) *EnvelopeBuilder {
	return NewEnvelope().Status(http.StatusCreated).Result(result).Message(format, args...)
}

// OK is a convenience for 200 responses.
func OK(result any, format string, args ...any) *EnvelopeBuilder {
	return NewEnvelope().Result(result).Message(format, args...)
}
