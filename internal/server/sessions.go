// SPDX-License-Identifier: MIT
package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"pocket/internal/log"
	"pocket/internal/tempo"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var (
	errNoSession       = errors.New("tap session not found")
	errTooManySessions = errors.New("too many open tap sessions")
)

// session is one client's tap tempo tracker.
type session struct {
	mu      sync.Mutex
	tracker *tempo.Tracker

	lastUsed time.Time // Guarded by Server.mu.
}

type sessionResponse struct {
	ID string `json:"id"`
}

type tapRequest struct {
	AtMs *int64 `json:"at_ms,omitempty"`
}

type tapResponse struct {
	BPM  *float64 `json:"bpm"`
	Taps int      `json:"taps"`
}

func newTapResponse(bpm tempo.BPM, taps int) tapResponse {
	resp := tapResponse{Taps: taps}
	if v, ok := bpm.Value(); ok {
		resp.BPM = &v
	}
	return resp
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	now := s.now()

	s.mu.Lock()
	evicted := s.evictIdle(now)
	if len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		log.Warnf("Server: Tap session limit of %d reached", s.opts.MaxSessions)
		writeError(w, http.StatusServiceUnavailable, errTooManySessions)
		return
	}
	s.sessions[id] = &session{tracker: tempo.NewTracker(s.opts.Staleness), lastUsed: now}
	total := len(s.sessions)
	s.mu.Unlock()

	if evicted > 0 {
		log.Debugf("Server: Evicted %d idle tap sessions", evicted)
	}
	log.Debugf("Server: Tap session %s created, total: %d", id, total)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id})
}

// evictIdle drops sessions unused for longer than SessionIdle. s.mu must be
// held.
func (s *Server) evictIdle(now time.Time) int {
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.opts.SessionIdle {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// lookup resolves the {id} route variable.
func (s *Server) lookup(r *http.Request) (*session, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return nil, errNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id.String()]
	if !ok {
		return nil, errNoSession
	}
	sess.lastUsed = s.now()
	return sess, nil
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req tapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess.mu.Lock()
	var bpm tempo.BPM
	if req.AtMs != nil {
		bpm = sess.tracker.RecordTap(*req.AtMs)
	} else {
		bpm = sess.tracker.Tap(s.now())
	}
	n := sess.tracker.Len()
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, newTapResponse(bpm, n))
}

func (s *Server) handleResetTaps(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookup(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	sess.mu.Lock()
	sess.tracker.Reset()
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, newTapResponse(tempo.Unknown, 0))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, errNoSession)
		return
	}

	s.mu.Lock()
	_, ok := s.sessions[id.String()]
	delete(s.sessions, id.String())
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, errNoSession)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sessions returns the number of open tap sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
