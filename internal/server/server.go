// Package server serves the portfolio page, the question API and health checks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bull/portfolio-buddy/internal/assistant"
	"github.com/bull/portfolio-buddy/internal/embedding"
	"github.com/bull/portfolio-buddy/internal/generation"
	"github.com/bull/portfolio-buddy/internal/storage"
)

// FailureMessage is shown whenever an answer could not be produced.
const FailureMessage = "Buddy is unable to generate an answer right now."

const (
	maxQuestionChars = 2000
	maxBodyBytes     = 64 << 10
)

// Asker answers a single question.
type Asker interface {
	Ask(ctx context.Context, question string) (*assistant.Answer, error)
}

// Profile is the portfolio owner's public information.
type Profile struct {
	Name          string
	FullName      string
	Intro         string
	About         string
	Email         string
	AssistantName string
}

// Config holds server dependencies.
type Config struct {
	Profile   Profile
	Assistant Asker
	Store     storage.VectorStore
	MCP       http.Handler // Mounted at /mcp when set
	Logger    *slog.Logger
}

// Server is the HTTP surface of the application.
type Server struct {
	profile Profile
	asker   Asker
	store   storage.VectorStore
	mcp     http.Handler
	logger  *slog.Logger
}

// New creates a server with the given dependencies.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	profile := cfg.Profile
	if profile.AssistantName == "" {
		profile.AssistantName = "Buddy"
	}
	if profile.FullName == "" {
		profile.FullName = profile.Name
	}
	return &Server{
		profile: profile,
		asker:   cfg.Assistant,
		store:   cfg.Store,
		mcp:     cfg.MCP,
		logger:  logger,
	}
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /{$}", s.handlePageAsk)
	mux.HandleFunc("POST /api/ask", s.handleAPIAsk)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to 10 seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, pageData{})
}

func (s *Server) handlePageAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.renderPage(w, http.StatusBadRequest, pageData{Error: "Could not read the question."})
		return
	}
	question := r.PostFormValue("question")

	answer, status, msg := s.ask(r.Context(), question)
	if answer == nil {
		s.renderPage(w, status, pageData{Question: question, Error: msg})
		return
	}
	s.renderPage(w, http.StatusOK, pageData{Question: question, Answer: answer.Text})
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string             `json:"answer"`
	Sources []assistant.Source `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be JSON with a question field"})
		return
	}

	answer, status, msg := s.ask(r.Context(), req.Question)
	if answer == nil {
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []assistant.Source{}
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text, Sources: sources})
}

// ask runs one question and maps failures to an HTTP status and user-visible message.
func (s *Server) ask(ctx context.Context, question string) (*assistant.Answer, int, string) {
	if len([]rune(strings.TrimSpace(question))) > maxQuestionChars {
		return nil, http.StatusBadRequest, fmt.Sprintf("Questions are limited to %d characters.", maxQuestionChars)
	}

	answer, err := s.asker.Ask(ctx, question)
	switch {
	case err == nil:
		return answer, http.StatusOK, ""
	case errors.Is(err, assistant.ErrEmptyQuestion):
		return nil, http.StatusBadRequest, "Please enter a question."
	case errors.Is(err, generation.ErrTimeout), errors.Is(err, embedding.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		s.logger.Error("question timed out", "error", err)
		return nil, http.StatusGatewayTimeout, FailureMessage
	default:
		s.logger.Error("failed to answer question", "error", err)
		return nil, http.StatusBadGateway, FailureMessage
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
