package section

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
	r.Get("/pages/{pageID}/sections", s.handleList)
	r.Post("/pages/{pageID}/sections", s.handleInsert)
	r.Put("/pages/{pageID}/sections/reorder", s.handleReorder)
	r.Get("/sections/{id}", s.handleGet)
	r.Put("/sections/{id}/content", s.handleUpdateContent)
	r.Delete("/sections/{id}", s.handleDelete)
	r.Get("/sections/{id}/versions", s.handleListVersions)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sections, err := s.repo.ListByPage(ctx, chi.URLParam(r, "pageID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"sections": sections})
}

type insertRequest struct {
	Type             string            `json:"type"`
	Variant          string            `json:"variant"`
	Order            *int              `json:"order"`
	Content          map[string]any    `json:"content"`
	Prompts          map[string]string `json:"prompts"`
	AIHints          map[string]string `json:"ai_hints"`
	CollectionSource *CollectionSource `json:"collectionSource"`
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Type == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "type is required", nil)
		return
	}
	now := time.Now()
	sec := &Section{
		ID:               ulid.Make().String(),
		PageID:           chi.URLParam(r, "pageID"),
		Type:             req.Type,
		Variant:          req.Variant,
		Order:            -1,
		Content:          req.Content,
		Prompts:          req.Prompts,
		AIHints:          req.AIHints,
		CollectionSource: req.CollectionSource,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.Order != nil {
		sec.Order = *req.Order
	}
	if err := s.repo.Insert(ctx, sec); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sec)
}

type reorderRequest struct {
	SectionIDs []string `json:"section_ids"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	pageID := chi.URLParam(r, "pageID")
	if err := s.repo.Reorder(ctx, pageID, req.SectionIDs); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	sections, err := s.repo.ListByPage(ctx, pageID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"sections": sections})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sec, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sec)
}

type updateContentRequest struct {
	Content map[string]any `json:"content"`
}

// handleUpdateContent records the previous content as a human version before
// overwriting, so manual edits stay in the undo trail.
func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	id := chi.URLParam(r, "id")
	sec, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.AddVersion(ctx, &Version{
		ID:        ulid.Make().String(),
		SectionID: sec.ID,
		Author:    "human",
		Content:   sec.Content,
		CreatedAt: time.Now(),
	}); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.UpdateContent(ctx, id, req.Content); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	sec.Content = req.Content
	cerr.SetJSONResponse(ctx, sec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"deleted": true})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versions, err := s.repo.ListVersions(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"versions": versions})
}
