package agent

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/craftled/contentops/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/agents", s.handleList)
	r.Post("/agents", s.handleCreate)
	r.Get("/agents/{id}", s.handleGet)
	r.Get("/agents/content-writer", s.handleFindContentWriter)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	websiteID := r.URL.Query().Get("website_id")
	if websiteID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id is required", nil)
		return
	}
	agents, err := s.repo.ListByWebsite(ctx, websiteID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"agents": agents})
}

type createRequest struct {
	WebsiteID    string       `json:"website_id"`
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capabilities"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.WebsiteID == "" || req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id and name are required", nil)
		return
	}
	now := time.Now()
	a := &Agent{
		ID:           ulid.Make().String(),
		WebsiteID:    req.WebsiteID,
		Name:         req.Name,
		Capabilities: req.Capabilities,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}

func (s *Server) handleFindContentWriter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	websiteID := r.URL.Query().Get("website_id")
	if websiteID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id is required", nil)
		return
	}
	writer, err := FindContentWriter(ctx, s.repo, websiteID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if writer == nil {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "no content-writing agent for website", nil)
		return
	}
	cerr.SetJSONResponse(ctx, writer)
}
