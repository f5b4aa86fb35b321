package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/server/auth"
	"github.com/dmitrijs2005/refinery/internal/server/guard"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/dmitrijs2005/refinery/internal/server/rbac"
	"github.com/dmitrijs2005/refinery/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload, err := payloadOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	if err := s.pipeline.Admit(r.Context(), originOf(r), payload); err != nil {
		writeDenial(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	payload, err := payloadOf(r)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	// A body that does not decode still goes through the pipeline with
	// empty credentials so it is screened and counted.
	var req loginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	res, err := s.pipeline.Login(r.Context(), guard.LoginRequest{
		Origin:   originOf(r),
		Username: req.Username,
		Password: req.Password,
		Payload:  payload,
	})
	if err != nil {
		writeDenial(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.Claims.ExpiresAt.Time,
		User:      userDTO{ID: res.User.ID, Username: res.User.UserName, Role: res.User.Role},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := guard.ClaimsFrom(r.Context())
	writeJSON(w, http.StatusOK, s.meOf(claims))
}

func (s *Server) meOf(c *auth.Claims) meResponse {
	resp := meResponse{
		User:        userDTO{ID: c.UserID, Username: c.Username, Role: c.Role},
		Permissions: s.catalog.Permissions(c.Role),
	}
	if c.Role == rbac.AdminRole {
		resp.Permissions = []string{"*"}
	}
	if c.ExpiresAt != nil {
		resp.ExpiresAt = c.ExpiresAt.Time
	}
	return resp
}

func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	permission := r.URL.Query().Get("permission")
	if permission == "" {
		writeError(w, http.StatusBadRequest, "permission is required")
		return
	}

	claims := guard.ClaimsFrom(r.Context())
	if err := s.pipeline.Check(r.Context(), originOf(r), claims, permission); err != nil {
		d := guard.AsDenial(err)
		if d.Status == http.StatusForbidden {
			writeJSON(w, http.StatusOK, accessResponse{Permission: permission, Allowed: false, Reason: d.Message})
			return
		}
		writeDenial(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{Permission: permission, Allowed: true})
}

func (s *Server) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.ListBlocked(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]blockedOriginDTO, 0, len(items))
	for _, b := range items {
		out = append(out, blockedOriginOf(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := minutesParam(req.DurationMinutes)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	b, err := s.ledger.Block(r.Context(), actorOf(r), services.BlockSpec{
		Origin:    req.Origin,
		Reason:    req.Reason,
		Duration:  d,
		Permanent: req.Permanent,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, blockedOriginOf(b))
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Unblock(r.Context(), actorOf(r), chi.URLParam(r, "origin")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLocked(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.ListLocked(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]accountLockDTO, 0, len(items))
	for _, l := range items {
		out = append(out, accountLockOf(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := minutesParam(req.DurationMinutes)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	l, err := s.ledger.Lock(r.Context(), actorOf(r), req.Username, req.Reason, d, 0)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountLockOf(l))
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Unlock(r.Context(), actorOf(r), chi.URLParam(r, "username")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := eventFilterOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := s.audit.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := eventsResponse{
		Events: make([]eventDTO, 0, len(items)),
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	switch {
	case out.Limit == 0:
		out.Limit = services.DefaultEventLimit
	case out.Limit > services.MaxEventLimit:
		out.Limit = services.MaxEventLimit
	}
	for _, e := range items {
		out.Events = append(out.Events, eventOf(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEventStats(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = n
	}

	stats, err := s.audit.Stats(r.Context(), days)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]statDTO, 0, len(stats))
	for _, st := range stats {
		out = append(out, statDTO{
			Day:      st.Day.Format(time.DateOnly),
			Severity: string(st.Severity),
			Count:    st.Count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive is not configured")
		return
	}

	f, err := eventFilterOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.archive.Archive(r.Context(), actorOf(r), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reset(r.Context(), actorOf(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// actorOf names the authenticated caller for ledger writes.
func actorOf(r *http.Request) services.Actor {
	a := services.Actor{Origin: originOf(r)}
	if c := guard.ClaimsFrom(r.Context()); c != nil {
		a.Name = c.Username
	}
	return a
}

func eventFilterOf(r *http.Request) (models.EventFilter, error) {
	q := r.URL.Query()
	f := models.EventFilter{
		Severity: models.Severity(q.Get("severity")),
		Kind:     models.EventKind(q.Get("kind")),
		Origin:   q.Get("origin"),
		Identity: q.Get("identity"),
	}

	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		return f, fmt.Errorf("limit: %w", err)
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		return f, fmt.Errorf("offset: %w", err)
	}
	if f.Since, err = timeParam(q.Get("since")); err != nil {
		return f, fmt.Errorf("since: %w", err)
	}
	if f.Until, err = timeParam(q.Get("until")); err != nil {
		return f, fmt.Errorf("until: %w", err)
	}
	return f, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: not an integer", common.ErrorValidation)
	}
	return n, nil
}

// maxDurationMinutes caps manual block and lock durations at one year.
const maxDurationMinutes = 366 * 24 * 60

func minutesParam(m int) (time.Duration, error) {
	if m > maxDurationMinutes {
		return 0, fmt.Errorf("%w: duration_minutes must not exceed %d", common.ErrorValidation, maxDurationMinutes)
	}
	return time.Duration(m) * time.Minute, nil
}

func timeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expected RFC3339 time", common.ErrorValidation)
	}
	return t, nil
}
