package http

import (
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/metrics"
)

// statusByKind is the single mapping from error kind to HTTP status.
// Not found answers 400, which existing clients depend on.
var statusByKind = map[core.Kind]int{
	core.KindInvalidArgument:       http.StatusBadRequest,
	core.KindNotFound:              http.StatusBadRequest,
	core.KindDataAccessFailure:     http.StatusInternalServerError,
	core.KindUnexpectedEmptyResult: http.StatusInternalServerError,
}

func statusFor(err error) int {
	if code, ok := statusByKind[core.KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// fail is the one place handler errors become responses: it logs, counts
// and writes the envelope with a null result.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	kind := core.KindOf(err)

	metrics.OperationResults.WithLabelValues(op, string(kind)).Inc()
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogOperationFailed(r.Context(), op, string(kind), status, err)

	NewEnvelope().
		Status(status).
		Message(core.MessageOf(err)).
		Write(w)
}

// succeed counts the operation and writes b.
func (s *Server) succeed(w http.ResponseWriter, op string, b *EnvelopeBuilder) {
	metrics.OperationResults.WithLabelValues(op, "ok").Inc()
	b.Write(w)
}
