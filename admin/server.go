// Package admin is a read-only HTTP surface over a running pool: a
// JSON status snapshot, a GraphQL view of the same snapshot, and a
// WebSocket feed of lifecycle events. None of it is part of the pool
// itself, and none of it touches a checked-out session: it reads only
// the pool's Status() line and the events its listeners receive, as an
// optional operator-facing layer bolted on from outside.
package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/graphql-go/graphql"
)

// StatusProvider is the single capability this package needs from a
// pool.Pool[S] — its rendered Status() string (spec §6.4). Kept
// non-generic deliberately: the HTTP surface has no reason to carry
// the backend session type parameter around.
type StatusProvider interface {
	Status() string
}

// Server is the admin HTTP surface: GET /status, POST /graphql, and
// (if an events handler was supplied) GET /events.
type Server struct {
	router *chi.Mux
}

// New builds the admin router. events may be nil, in which case
// /events is not mounted — a caller that only wants the status
// endpoints can pass nil rather than standing up a broadcaster.
func New(status StatusProvider, events http.Handler) (*Server, error) {
	s := &Server{router: chi.NewRouter()}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Timeout(10 * time.Second))

	s.router.Get("/status", s.handleStatus(status))

	schema, err := buildSchema(status)
	if err != nil {
		return nil, fmt.Errorf("admin: building graphql schema: %w", err)
	}
	s.router.Post("/graphql", handleGraphQL(schema))

	if events != nil {
		s.router.Get("/events", events.ServeHTTP)
	}

	return s, nil
}

// ServeHTTP satisfies http.Handler, so a Server mounts directly on
// whatever *http.Server or parent router a caller already runs.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleStatus(status StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := parseStatus(status.Status())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "status_unparseable", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, errorType, message string) {
	writeJSON(w, statusCode, map[string]any{
		"ok":      false,
		"error":   errorType,
		"message": message,
	})
}

// handleGraphQL adapts graphql-go's Do() call into an http.HandlerFunc,
// the same shape pkg/graphql/handler.go wraps around its own schema.
func handleGraphQL(schema graphql.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query         string         `json:"query"`
			OperationName string         `json:"operationName"`
			Variables     map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  body.Query,
			OperationName:  body.OperationName,
			VariableValues: body.Variables,
			Context:        r.Context(),
		})

		writeJSON(w, http.StatusOK, result)
	}
}
