package batch

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftled/contentops/pkg/cerr"
)

type Server struct {
	tracker *Tracker
	items   CollectionStore
}

func NewServer(tracker *Tracker, items CollectionStore) *Server {
	return &Server{tracker: tracker, items: items}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/batches", s.handleList)
	r.Post("/batches", s.handleSubmit)
	r.Get("/batches/{id}", s.handleCheckStatus)
	r.Post("/batches/{id}/process", s.handleProcessResults)
	r.Post("/batches/{id}/cancel", s.handleCancel)
	r.Get("/collections/{type}/items", s.handleListItems)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	websiteID := r.URL.Query().Get("website_id")
	if websiteID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id is required", nil)
		return
	}
	jobs, err := s.tracker.ListJobs(ctx, websiteID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"jobs": jobs})
}

type submitRequest struct {
	WebsiteID      string         `json:"website_id"`
	JobType        string         `json:"job_type"`
	CollectionType string         `json:"collection_type"`
	Units          []string       `json:"units"`
	Metadata       map[string]any `json:"metadata"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	job, err := s.tracker.Submit(ctx, SubmitRequest{
		WebsiteID:      req.WebsiteID,
		JobType:        req.JobType,
		CollectionType: req.CollectionType,
		Units:          req.Units,
		Metadata:       req.Metadata,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, job)
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	job, err := s.tracker.CheckStatus(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, job)
}

func (s *Server) handleProcessResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := s.tracker.ProcessResults(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req cancelRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	job, err := s.tracker.Cancel(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, job)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	websiteID := r.URL.Query().Get("website_id")
	if websiteID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id is required", nil)
		return
	}
	items, err := s.items.ListByCollection(ctx, websiteID, chi.URLParam(r, "type"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"items": items})
}
