package generation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftled/contentops/internal/editorial"
	"github.com/craftled/contentops/pkg/cerr"
)

type Server struct {
	orchestrator *Orchestrator
}

func NewServer(orchestrator *Orchestrator) *Server {
	return &Server{orchestrator: orchestrator}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/generation/jobs", s.handleListJobs)
	r.Post("/generation/jobs", s.handleStart)
	r.Get("/generation/jobs/{id}", s.handleProgress)
	r.Post("/generation/jobs/{id}/cancel", s.handleCancel)
	r.Post("/pages/{pageID}/generate", s.handleGenerateSections)
	r.Post("/pages/{pageID}/optimize", s.handleOptimizeAll)
	r.Post("/sections/{id}/optimize", s.handleOptimizeSection)
}

type tenantPayload struct {
	SiteName string `json:"site_name"`
	Audience string `json:"audience"`
	Tone     string `json:"tone"`
}

func (t tenantPayload) context(websiteID string) TenantContext {
	return TenantContext{
		WebsiteID: websiteID,
		SiteName:  t.SiteName,
		Audience:  t.Audience,
		Tone:      t.Tone,
	}
}

type startRequest struct {
	WebsiteID string        `json:"website_id"`
	Mode      string        `json:"mode"`
	Limit     int           `json:"limit"`
	Priority  string        `json:"priority"`
	Tenant    tenantPayload `json:"tenant"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	job, err := s.orchestrator.StartGeneration(ctx, StartRequest{
		WebsiteID: req.WebsiteID,
		Mode:      Mode(req.Mode),
		Limit:     req.Limit,
		Priority:  editorial.Priority(req.Priority),
		Tenant:    req.Tenant.context(req.WebsiteID),
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	websiteID := r.URL.Query().Get("website_id")
	if websiteID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id is required", nil)
		return
	}
	jobs, err := s.orchestrator.ListJobs(ctx, websiteID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"jobs": jobs})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	progress, err := s.orchestrator.Progress(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, progress)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	job, err := s.orchestrator.CancelGeneration(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, job)
}

type sectionGenerationRequest struct {
	WebsiteID string        `json:"website_id"`
	Tenant    tenantPayload `json:"tenant"`
}

func (s *Server) handleGenerateSections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req sectionGenerationRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	results, err := s.orchestrator.GenerateSections(ctx, chi.URLParam(r, "pageID"), req.Tenant.context(req.WebsiteID))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"results": results})
}

func (s *Server) handleOptimizeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req sectionGenerationRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	results, err := s.orchestrator.OptimizeAllSections(ctx, chi.URLParam(r, "pageID"), req.Tenant.context(req.WebsiteID))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"results": results})
}

func (s *Server) handleOptimizeSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req sectionGenerationRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	result, err := s.orchestrator.OptimizeSection(ctx, chi.URLParam(r, "id"), req.Tenant.context(req.WebsiteID))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}
