package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/doubletabai/tabsql/pkg/agent"
	"github.com/doubletabai/tabsql/pkg/database"
	"github.com/doubletabai/tabsql/pkg/prompt"
	"github.com/doubletabai/tabsql/pkg/training"
	"github.com/doubletabai/tabsql/pkg/vector"
)

const maxBodySize = 1 << 20

// NewHandler routes the HTTP API to the agent.
func NewHandler(a *agent.Agent) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", handleAsk(a))
		r.Post("/generate_sql", handleGenerateSQL(a))
		r.Post("/train", handleTrain(a))
		r.Get("/training_data", handleListTrainingData(a))
		r.Delete("/training_data/{id}", handleRemoveTrainingData(a))
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
	SQL   string `json:"sql,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// statusFor maps domain errors to HTTP status codes. Anything unrecognised is treated as an upstream
// failure of the model, the knowledge store or the database.
func statusFor(err error) int {
	switch {
	case errors.Is(err, agent.ErrEmptyQuestion),
		errors.Is(err, training.ErrEmptyContent),
		errors.Is(err, training.ErrUnknownKind),
		errors.Is(err, training.ErrMissingSource):
		return http.StatusBadRequest
	case errors.Is(err, vector.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrInsufficientContext),
		errors.Is(err, prompt.ErrNoSQL),
		errors.Is(err, database.ErrWriteNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}
