package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"contact_intake/internal/intake"
	"contact_intake/internal/submission"

	"github.com/rs/zerolog/hlog"
)

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, intake.Liveness())
}

// handlePreflight answers OPTIONS with an empty body; CORS headers are added
// by the middleware.
func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			hlog.FromRequest(r).Warn().Int64("limit", tooLarge.Limit).Msg("Request body too large")
		} else {
			hlog.FromRequest(r).Warn().Err(err).Msg("Failed to read request body")
		}
		writeJSON(w, r, intake.Response{OK: false, Error: intake.MsgInvalidBody, StatusCode: http.StatusBadRequest})
		return
	}

	req := submission.Request{
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
		Query:       r.URL.Query(),
		Source:      sourceAddr(r),
	}

	// The submission is finished even if the caller disconnects; the
	// collaborator timeouts still bound it.
	reply := s.handler.Handle(context.WithoutCancel(r.Context()), req)
	writeJSON(w, r, reply.Body)
}

// sourceAddr returns the caller's IP. Behind a trusted proxy RealIP has
// already replaced RemoteAddr with the forwarded address.
func sourceAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeJSON always answers 200; the outcome travels in the body.
func writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to encode response")
	}
}
