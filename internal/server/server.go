// SPDX-License-Identifier: MIT
/*
Package server exposes the note mapper, pitch estimator, tap tempo tracker
and MIDI encoder over HTTP.

Routes:

	GET    /api/note?freq=440
	GET    /api/frequency?note=C%23&octave=4
	POST   /api/pitch                      {"sample_rate": 44100, "samples": [...]}
	POST   /api/tap/sessions               -> {"id": "..."}
	POST   /api/tap/sessions/{id}/taps     {"at_ms": 1200} -> {"bpm": 120, "taps": 3}
	DELETE /api/tap/sessions/{id}/taps
	DELETE /api/tap/sessions/{id}
	POST   /api/midi                       {"bpm": 96, "notes": [...]} -> audio/midi
	POST   /api/transcribe                 WAV body -> audio/midi
	GET    /api/reading
	GET    /ws

Errors are reported as {"error": "..."} with a 4xx or 5xx status.
*/
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"pocket/internal/log"
	"pocket/internal/midi"
	"pocket/internal/pitch"
	"pocket/internal/tempo"
	"pocket/internal/transcribe"
	"pocket/internal/tuner"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const (
	maxJSONBody  = 4 << 20
	maxClipBody  = 64 << 20
	shutdownWait = 5 * time.Second

	// DefaultMaxSessions bounds the number of open tap sessions.
	DefaultMaxSessions = 1024
	// sessionIdleWindows is how many staleness windows a tap session may sit
	// unused before it is evicted.
	sessionIdleWindows = 20
)

// ReadingSource provides the most recent live reading.
type ReadingSource interface {
	Latest() tuner.Reading
}

// Options configures a Server. A nil Estimator uses the default thresholds;
// routes whose other collaborator is nil answer 503, except /ws which is not
// mounted. Tap sessions unused for SessionIdle are evicted when a new one is
// created; SessionIdle defaults to 20 staleness windows.
type Options struct {
	Estimator      *pitch.Estimator
	Readings       ReadingSource
	WebSocket      http.Handler
	Transcriber    transcribe.Transcriber
	DefaultBPM     float64
	Staleness      time.Duration
	MaxSessions    int
	SessionIdle    time.Duration
	AllowedOrigins []string
}

// Server routes API requests.
type Server struct {
	opts   Options
	router *mux.Router
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// New returns a Server with its routes registered.
func New(opts Options) *Server {
	if opts.Estimator == nil {
		opts.Estimator, _ = pitch.NewEstimator(pitch.DefaultConfig())
	}
	if opts.DefaultBPM == 0 {
		opts.DefaultBPM = midi.DefaultBPM
	}
	if opts.Staleness <= 0 {
		opts.Staleness = tempo.DefaultStaleness
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = sessionIdleWindows * opts.Staleness
	}

	s := &Server{
		opts:     opts,
		router:   mux.NewRouter().StrictSlash(true),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/note", s.handleNote).Methods(http.MethodGet)
	api.HandleFunc("/frequency", s.handleFrequency).Methods(http.MethodGet)
	api.HandleFunc("/pitch", s.handlePitch).Methods(http.MethodPost)
	api.HandleFunc("/tap/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/tap/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/tap/sessions/{id}/taps", s.handleTap).Methods(http.MethodPost)
	api.HandleFunc("/tap/sessions/{id}/taps", s.handleResetTaps).Methods(http.MethodDelete)
	api.HandleFunc("/midi", s.handleMIDI).Methods(http.MethodPost)
	api.HandleFunc("/transcribe", s.handleTranscribe).Methods(http.MethodPost)
	api.HandleFunc("/reading", s.handleReading).Methods(http.MethodGet)

	if s.opts.WebSocket != nil {
		s.router.Handle("/ws", s.opts.WebSocket)
	}
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server: Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("Server: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debugf("Server: %s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Server: Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeJSON reads a single JSON document from the request body. An empty
// body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
