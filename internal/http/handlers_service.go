package http

import (
	"net/http"

	"ledger/internal/log"
)

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	const op = log.OpCreateService

	dto, err := decodeAddService(w, r, op)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	svc, err := s.services.CreateService(ctx, dto)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(w, op, Created(svc, "service created(%s)", svc.Name))
}

func (s *Server) handleFindService(w http.ResponseWriter, r *http.Request) {
	const op = log.OpFindService

	id, err := parseIDParam(r, op, "service_id")
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	svc, err := s.services.FindService(ctx, id)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(w, op, OK(svc, "got service of id %d", id))
}
