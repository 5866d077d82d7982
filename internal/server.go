package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/craftled/contentops/internal/agent"
	"github.com/craftled/contentops/internal/batch"
	"github.com/craftled/contentops/internal/config"
	"github.com/craftled/contentops/internal/content"
	"github.com/craftled/contentops/internal/editorial"
	"github.com/craftled/contentops/internal/generation"
	"github.com/craftled/contentops/internal/question"
	"github.com/craftled/contentops/internal/schedule"
	"github.com/craftled/contentops/internal/section"
	"github.com/craftled/contentops/pkg/cerr"
	"github.com/craftled/contentops/pkg/clog"
)

type Server struct {
	server           *http.Server
	env              *config.Env
	editorialServer  *editorial.Server
	contentServer    *content.Server
	questionServer   *question.Server
	agentServer      *agent.Server
	sectionServer    *section.Server
	scheduleServer   *schedule.Server
	batchServer      *batch.Server
	generationServer *generation.Server
}

func NewServer(
	env *config.Env,
	editorialServer *editorial.Server,
	contentServer *content.Server,
	questionServer *question.Server,
	agentServer *agent.Server,
	sectionServer *section.Server,
	scheduleServer *schedule.Server,
	batchServer *batch.Server,
	generationServer *generation.Server,
) *Server {
	return &Server{
		env:              env,
		editorialServer:  editorialServer,
		contentServer:    contentServer,
		questionServer:   questionServer,
		agentServer:      agentServer,
		sectionServer:    sectionServer,
		scheduleServer:   scheduleServer,
		batchServer:      batchServer,
		generationServer: generationServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for all incoming requests; cancelling it (e.g. on shutdown signal)
// cancels in-flight request contexts as well.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		s.editorialServer.Routes(r)
		s.contentServer.Routes(r)
		s.questionServer.Routes(r)
		s.agentServer.Routes(r)
		s.sectionServer.Routes(r)
		s.scheduleServer.Routes(r)
		s.batchServer.Routes(r)
		s.generationServer.Routes(r)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip API key check for the health endpoint.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.BaseEnv.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
