package ioapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gnames/gn"
	"github.com/go-chi/chi/v5"
	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/errcode"
	"github.com/openherbaria/herbdb/pkg/herbdb"
)

// handleQueue serves GET /api/v1/queue. The three filter dimensions
// are independent query parameters.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := herbdb.QueueFilter{
		Status:      strings.ToUpper(q.Get("status")),
		FlaggedOnly: q.Get("flagged") == "true",
	}
	for _, raw := range q["priority"] {
		p, err := herbdb.ParsePriority(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		filter.Priorities = append(filter.Priorities, p)
	}

	items, err := s.engine.Queue(r.Context(), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if items == nil {
		items = []herbdb.QueueItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.Detail(
		r.Context(), chi.URLParam(r, "specimenID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type reviewRequest struct {
	Reviewer  string            `json:"reviewer"`
	Decisions map[string]string `json:"decisions"`
	NewStatus string            `json:"newStatus"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Reviewer == "" {
		writeError(w, http.StatusBadRequest,
			errors.New("reviewer is required"))
		return
	}

	upd := herbdb.ReviewUpdate{
		SpecimenID: chi.URLParam(r, "specimenID"),
		Reviewer:   req.Reviewer,
		NewStatus:  strings.ToUpper(req.NewStatus),
	}
	if len(req.Decisions) > 0 {
		upd.Decisions = make(map[dwc.Term]string, len(req.Decisions))
		for k, v := range req.Decisions {
			term := dwc.Term(k)
			if !term.IsValid() {
				writeError(w, http.StatusBadRequest,
					errors.New("unknown term "+k))
				return
			}
			upd.Decisions[term] = v
		}
	}

	if err := s.engine.Update(r.Context(), upd); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "updated"})
}

type priorityRequest struct {
	Priority string `json:"priority"`
	Reviewer string `json:"reviewer"`
}

func (s *Server) handlePriority(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := herbdb.ParsePriority(req.Priority)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = s.engine.SetPriority(
		r.Context(), chi.URLParam(r, "specimenID"), p, req.Reviewer)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "updated"})
}

type flaggedRequest struct {
	Flagged  bool   `json:"flagged"`
	Reviewer string `json:"reviewer"`
}

func (s *Server) handleFlagged(w http.ResponseWriter, r *http.Request) {
	var req flaggedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.engine.SetFlagged(
		r.Context(), chi.URLParam(r, "specimenID"),
		req.Flagged, req.Reviewer)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "updated"})
}

type reviewerRequest struct {
	Reviewer string `json:"reviewer"`
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	var req reviewerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.engine.Reopen(
		r.Context(), chi.URLParam(r, "specimenID"), req.Reviewer)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "reopened"})
}

func (s *Server) handleResolveFlag(w http.ResponseWriter, r *http.Request) {
	var req reviewerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.engine.ResolveFlag(
		r.Context(), chi.URLParam(r, "flagID"), req.Reviewer)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "resolved"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest,
			errors.New("cannot parse request body"))
		return false
	}
	return true
}

// writeEngineError maps review-engine errors to HTTP statuses:
// state-machine violations and unresolved flags surface as conflicts
// the UI presents to the reviewer.
func writeEngineError(w http.ResponseWriter, err error) {
	var gerr *gn.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case errcode.ReviewNotFoundError:
			writeError(w, http.StatusNotFound, err)
			return
		case errcode.ReviewInvalidTransitionError,
			errcode.ReviewUnresolvedFlagsError:
			writeError(w, http.StatusConflict, err)
			return
		}
	}
	slog.Error("Review API internal error", "error", err)
	writeError(w, http.StatusInternalServerError,
		errors.New("internal error"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
