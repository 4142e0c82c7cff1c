// Copyright 2025 TCG Assistant
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gateway implements the HTTP service that fronts the agents:
// weather, card search, and the coordinator, each with a streaming
// variant. Handlers validate input, enforce rate limits, dispatch to an
// agent, and record usage.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"tcg-agent/platform/agents"
	"tcg-agent/platform/common/usage"
	"tcg-agent/platform/config"
	"tcg-agent/platform/shared/logger"
)

// AgentRunner is the surface of agents.Agent the handlers use.
type AgentRunner interface {
	Run(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, emit agents.EventHandler) (string, error)
	StreamWithCallback(ctx context.Context, prompt string) <-chan agents.Event
}

// CardResearcher answers card search queries directly, without the
// coordinator loop.
type CardResearcher interface {
	Research(ctx context.Context, query string) (string, error)
}

// Server holds the gateway's dependencies
type Server struct {
	cfg         *config.Config
	log         *logger.Logger
	weather     AgentRunner
	coordinator AgentRunner
	researcher  CardResearcher
	limiter     *RateLimiter
	usage       *usage.Recorder
}

// NewServer creates a gateway server. Agents may be nil when their
// backing service is not configured; the matching endpoints then return
// 503.
func NewServer(cfg *config.Config, log *logger.Logger, weather, coordinator AgentRunner, researcher CardResearcher, limiter *RateLimiter, recorder *usage.Recorder) *Server {
	if log == nil {
		log = logger.New("gateway")
	}
	return &Server{
		cfg:         cfg,
		log:         log,
		weather:     weather,
		coordinator: coordinator,
		researcher:  researcher,
		limiter:     limiter,
		usage:       recorder,
	}
}

// Request payloads

// WeatherRequest asks for the forecast at a location
type WeatherRequest struct {
	Location string `json:"location"`
}

// CardSearchRequest asks to identify a card
type CardSearchRequest struct {
	Query string `json:"query"`
}

// CoordinatorRequest carries a free-form prompt for the coordinator
type CoordinatorRequest struct {
	Prompt string `json:"prompt"`
}

// Routes registers the agent endpoints on the router
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/weather", s.withRequestID(s.weatherHandler)).Methods("POST")
	r.HandleFunc("/weather-streaming", s.withRequestID(s.weatherStreamingHandler)).Methods("POST")
	r.HandleFunc("/card-search", s.withRequestID(s.cardSearchHandler)).Methods("POST")
	r.HandleFunc("/card-search-streaming", s.withRequestID(s.cardSearchStreamingHandler)).Methods("POST")
	r.HandleFunc("/coordinator", s.withRequestID(s.coordinatorHandler)).Methods("POST")
	r.HandleFunc("/coordinator-streaming", s.withRequestID(s.coordinatorStreamingHandler)).Methods("POST")
	r.HandleFunc("/coordinator-streaming-callback", s.withRequestID(s.coordinatorCallbackHandler)).Methods("POST")
}

type contextKey string

const requestIDKey contextKey = "request_id"

// withRequestID assigns a request ID, enforces the rate limit, and
// records usage for the wrapped handler.
func (s *Server) withRequestID(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		if err := s.limiter.Allow(r.Context(), clientID(r)); err != nil {
			promRateLimited.Inc()
			promRequestsTotal.WithLabelValues(r.URL.Path, "429").Inc()
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.limiter.limitPerMinute))
			if used, reset, serr := s.limiter.Status(r.Context(), clientID(r)); serr == nil {
				w.Header().Set("X-RateLimit-Used", strconv.Itoa(used))
				w.Header().Set("X-RateLimit-Reset", reset.UTC().Format(time.RFC3339))
			}
			s.sendError(w, requestID, http.StatusTooManyRequests, err.Error())
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next(recorder, r.WithContext(ctx), requestID)

		latency := time.Since(start)
		promRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		promRequestDuration.WithLabelValues(r.URL.Path).Observe(float64(latency.Milliseconds()))

		go func() {
			_ = s.usage.RecordAPICall(usage.APICallEvent{
				RequestID:      requestID,
				Endpoint:       r.URL.Path,
				HTTPMethod:     r.Method,
				HTTPStatusCode: recorder.status,
				LatencyMs:      latency.Milliseconds(),
			})
		}()
	}
}

// statusRecorder captures the response status for metrics and usage
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush passes through so streaming handlers keep working behind the
// recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// clientID identifies the caller for rate limiting
func clientID(r *http.Request) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sendError writes a JSON error response and logs it
func (s *Server) sendError(w http.ResponseWriter, requestID string, status int, message string) {
	s.log.ErrorWithCode(requestID, message, status, nil, nil)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":      message,
		"request_id": requestID,
	})
}

// sendResponse writes the standard success envelope
func (s *Server) sendResponse(w http.ResponseWriter, requestID, response string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"response":   response,
		"request_id": requestID,
	})
}

// decodeRequest parses a JSON body into dst
func decodeRequest(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// weatherHandler answers a weather question in one response
func (s *Server) weatherHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if s.weather == nil {
		s.sendError(w, requestID, http.StatusServiceUnavailable, "weather agent is not configured")
		return
	}

	var req WeatherRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendError(w, requestID, http.StatusBadRequest, err.Error())
		return
	}
	if req.Location == "" {
		s.sendError(w, requestID, http.StatusBadRequest, "location is required")
		return
	}

	s.log.Info(requestID, "Weather request", map[string]interface{}{"location": req.Location})

	answer, err := s.weather.Run(r.Context(), agents.WeatherPrompt(req.Location))
	if err != nil {
		s.sendError(w, requestID, http.StatusInternalServerError, fmt.Sprintf("weather agent failed: %v", err))
		return
	}

	s.sendResponse(w, requestID, answer)
}

// weatherStreamingHandler streams the weather summary as plain text
func (s *Server) weatherStreamingHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if s.weather == nil {
		s.sendError(w, requestID, http.StatusServiceUnavailable, "weather agent is not configured")
		return
	}

	var req WeatherRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendError(w, requestID, http.StatusBadRequest, err.Error())
		return
	}
	if req.Location == "" {
		s.sendError(w, requestID, http.StatusBadRequest, "location is required")
		return
	}

	s.log.Info(requestID, "Weather streaming request", map[string]interface{}{"location": req.Location})
	s.streamPlainSummary(w, r, requestID, s.weather, agents.WeatherPrompt(req.Location))
}

// cardSearchHandler identifies a card in one response
func (s *Server) cardSearchHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if s.researcher == nil {
		s.sendError(w, requestID, http.StatusServiceUnavailable, "card research is not configured")
		return
	}

	var req CardSearchRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendError(w, requestID, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		s.sendError(w, requestID, http.StatusBadRequest, "query is required")
		return
	}

	s.log.Info(requestID, "Card search request", map[string]interface{}{"query": req.Query})

	answer, err := s.researcher.Research(r.Context(), req.Query)
	if err != nil {
		s.sendError(w, requestID, http.StatusInternalServerError, fmt.Sprintf("card research failed: %v", err))
		return
	}

	s.sendResponse(w, requestID, answer)
}

// cardSearchStreamingHandler re-emits the research answer in fixed-size
// chunks. Perplexity answers arrive whole, so the chunking provides the
// streaming shape clients expect.
func (s *Server) cardSearchStreamingHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if s.researcher == nil {
		s.sendError(w, requestID, http.StatusServiceUnavailable, "card research is not configured")
		return
	}

	var req CardSearchRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendError(w, requestID, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		s.sendError(w, requestID, http.StatusBadRequest, "query is required")
		return
	}

	s.log.Info(requestID, "Card search streaming request", map[string]interface{}{"query": req.Query})

	answer, err := s.researcher.Research(r.Context(), req.Query)
	if err != nil {
		s.sendError(w, requestID, http.StatusInternalServerError, fmt.Sprintf("card research failed: %v", err))
		return
	}

	s.streamChunkedText(w, r, answer)
}

// coordinatorHandler runs the coordinator in one response
func (s *Server) coordinatorHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if s.coordinator == nil {
		s.sendError(w, requestID, http.StatusServiceUnavailable, "coordinator is not configured")
		return
	}

	var req CoordinatorRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendError(w, requestID, http.StatusBadRequest, err.Error())
		return
	}
	if req.Prompt == "" {
		s.sendError(w, requestID, http.StatusBadRequest, "prompt is required")
		return
	}

	s.log.Info(requestID, "Coordinator request", nil)

	answer, err := s.coordinator.Run(r.Context(), req.Prompt)
	if err != nil {
		s.sendError(w, requestID, http.StatusInternalServerError, fmt.Sprintf("coordinator failed: %v", err))
		return
	}

	s.sendResponse(w, requestID, answer)
}

// coordinatorStreamingHandler streams coordinator events as NDJSON
func (s *Server) coordinatorStreamingHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if s.coordinator == nil {
		s.sendError(w, requestID, http.StatusServiceUnavailable, "coordinator is not configured")
		return
	}

	var req CoordinatorRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendError(w, requestID, http.StatusBadRequest, err.Error())
		return
	}
	if req.Prompt == "" {
		s.sendError(w, requestID, http.StatusBadRequest, "prompt is required")
		return
	}

	s.log.Info(requestID, "Coordinator streaming request", nil)
	s.streamJSONEvents(w, r, requestID, req.Prompt)
}

// coordinatorCallbackHandler streams queue-fed events ending in a
// complete or error sentinel
func (s *Server) coordinatorCallbackHandler(w http.ResponseWriter, r *http.Request, requestID string) {
	if s.coordinator == nil {
		s.sendError(w, requestID, http.StatusServiceUnavailable, "coordinator is not configured")
		return
	}

	var req CoordinatorRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendError(w, requestID, http.StatusBadRequest, err.Error())
		return
	}
	if req.Prompt == "" {
		s.sendError(w, requestID, http.StatusBadRequest, "prompt is required")
		return
	}

	s.log.Info(requestID, "Coordinator callback streaming request", nil)
	s.streamCallbackEvents(w, r, req.Prompt)
}
