package content

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/pkg/cerr"
)

type Server struct {
	repo   Repository
	engine *transition.Engine
}

func NewServer(repo Repository, engine *transition.Engine) *Server {
	return &Server{repo: repo, engine: engine}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/content", s.handleList)
	r.Get("/content/{id}", s.handleGet)
	r.Get("/content/{id}/history", s.handleHistory)
	r.Post("/content/{id}/transition", s.handleTransition)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	websiteID := r.URL.Query().Get("website_id")
	if websiteID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id is required", nil)
		return
	}
	items, err := s.repo.ListByWebsite(ctx, websiteID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"items": items})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, item)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.engine.History(ctx, transition.EntityTypeContentItem, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"entries": entries})
}

type transitionRequest struct {
	Event    string         `json:"event"`
	Actor    string         `json:"actor"`
	ActorID  string         `json:"actor_id"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	item, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	res, err := s.engine.Execute(ctx, transition.ContentMachine, s.repo, transition.Request{
		EntityID:     item.ID,
		EntityType:   transition.EntityTypeContentItem,
		CurrentState: transition.State(item.Status),
		Event:        transition.Event(req.Event),
		Actor:        req.Actor,
		ActorID:      req.ActorID,
		Metadata:     req.Metadata,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}
