package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nodeatlas/nodeatlas/pkg/atlas"
	"github.com/nodeatlas/nodeatlas/pkg/logging"
)

// errorResponse is the JSON body of every non-2xx answer.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// handleGraph serves the current build artifact.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	build := s.builder.Current()
	if build == nil {
		s.respondError(w, http.StatusNotFound, "no completed build available yet")
		return
	}
	s.respondJSON(w, http.StatusOK, build)
}

// handleStats serves only the stats block of the current build.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	build := s.builder.Current()
	if build == nil {
		s.respondError(w, http.StatusNotFound, "no completed build available yet")
		return
	}
	s.respondJSON(w, http.StatusOK, build.Stats)
}

// handleStatus serves the builder state, including the last error if the
// most recent attempt failed.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.builder.Status())
}

// handleBuild triggers a manual rebuild. 409 while one is in flight.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		s.respondError(w, http.StatusServiceUnavailable, "manual builds not enabled")
		return
	}
	if err := s.trigger(); err != nil {
		if errors.Is(err, atlas.ErrBuildInProgress) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, s.builder.Status())
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if s.gql == nil {
		s.respondError(w, http.StatusServiceUnavailable, "graphql endpoint not available")
		return
	}
	s.gql.ServeHTTP(w, r)
}

// handleEvents streams build notices as server-sent events until the client
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "event stream not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.bus.Subscribe(r.Context(), atlas.TopicBuilds)
	defer sub.Unsubscribe()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("encode event", logging.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: build\ndata: %s\n\n", payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
