package http

import (
	"net/http"
	"strings"

	"ledger/internal/log"
)

func (s *Server) handleCreateHistory(w http.ResponseWriter, r *http.Request) {
	const op = log.OpCreateHistory

	dto, err := decodeAddHistory(w, r, op)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	h, err := s.histories.CreateHistory(ctx, dto)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(w, op, Created(h, "history created(%s)", h.Content))
}

func (s *Server) handleFindByMonth(w http.ResponseWriter, r *http.Request) {
	const op = log.OpFindByMonth

	q, err := parseMonthQuery(r, op)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	rows, err := s.histories.FindByMonth(ctx, q)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	// echo the route text so "08" stays "08"
	s.succeed(w, op, OK(rows, "got histories by month %s-%s",
		strings.TrimSpace(r.PathValue("year")), strings.TrimSpace(r.PathValue("month"))))
}

func (s *Server) handleUpdateHistory(w http.ResponseWriter, r *http.Request) {
	const op = log.OpUpdateHistory

	id, err := parseIDParam(r, op, "id")
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	edit, err := decodeEdit(w, r, op)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	h, err := s.histories.UpdateHistory(ctx, id, edit)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(w, op, OK(h, "updated history %d", id))
}

func (s *Server) handleRemoveHistory(w http.ResponseWriter, r *http.Request) {
	const op = log.OpRemoveHistory

	id, err := parseIDParam(r, op, "id")
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	if err := s.histories.RemoveHistory(ctx, id); err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(w, op, OK(nil, "removed history %d", id))
}

func (s *Server) handleBulkInsert(w http.ResponseWriter, r *http.Request) {
	const op = log.OpBulkInsert

	rows, err := decodeBulk(w, r, op)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}

	ctx, cancel := s.operationContext(r)
	defer cancel()

	res, err := s.histories.BulkInsert(ctx, rows)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(w, op, Created(res, "histories bulk insert success: %d", res.AffectedRows))
}
