package editorial

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/craftled/contentops/internal/eventbus"
	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/pkg/cerr"
)

type Server struct {
	repo    Repository
	planner *Planner
	engine  *transition.Engine
	bus     *eventbus.Bus
}

func NewServer(repo Repository, planner *Planner, engine *transition.Engine, bus *eventbus.Bus) *Server {
	return &Server{
		repo:    repo,
		planner: planner,
		engine:  engine,
		bus:     bus,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/tasks", s.handleList)
	r.Post("/tasks", s.handleCreate)
	r.Get("/tasks/stats", s.handleStatistics)
	r.Get("/tasks/{id}", s.handleGet)
	r.Put("/tasks/{id}", s.handleUpdate)
	r.Delete("/tasks/{id}", s.handleDelete)
	r.Get("/tasks/{id}/dependencies", s.handleDependencies)
	r.Get("/tasks/{id}/history", s.handleHistory)
	r.Post("/tasks/{id}/transition", s.handleTransition)
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	f := Filter{
		WebsiteID:       q.Get("website_id"),
		AssignedAgentID: q.Get("assigned_agent_id"),
		CurrentPhase:    q.Get("current_phase"),
	}
	for _, s := range splitCSV(q.Get("status")) {
		f.Statuses = append(f.Statuses, Status(s))
	}
	for _, p := range splitCSV(q.Get("priority")) {
		f.Priorities = append(f.Priorities, Priority(p))
	}
	f.Tags = splitCSV(q.Get("tags"))
	if v := q.Get("overdue"); v != "" {
		b := v == "true"
		f.Overdue = &b
	}
	if v := q.Get("has_blockers"); v != "" {
		b := v == "true"
		f.HasBlockers = &b
	}
	return f
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := s.planner.FindWithFilters(ctx, filterFromQuery(r))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}

type createTaskRequest struct {
	WebsiteID       string         `json:"website_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Type            TaskType       `json:"task_type"`
	Priority        Priority       `json:"priority"`
	DependsOn       []string       `json:"depends_on"`
	SitemapTargets  []string       `json:"sitemap_targets"`
	SEO             SEOMeta        `json:"seo"`
	WordCountTarget int            `json:"word_count_target"`
	Tags            []string       `json:"tags"`
	Metadata        map[string]any `json:"metadata"`
	DueDate         *time.Time     `json:"due_date"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	now := time.Now()
	t := &Task{
		ID:              ulid.Make().String(),
		WebsiteID:       req.WebsiteID,
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		Status:          Status(transition.TaskMachine.Initial),
		Priority:        priority,
		DependsOn:       req.DependsOn,
		SitemapTargets:  req.SitemapTargets,
		SEO:             req.SEO,
		WordCountTarget: req.WordCountTarget,
		Tags:            req.Tags,
		Metadata:        req.Metadata,
		DueDate:         req.DueDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := t.Validate(); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, err.Error(), nil)
		return
	}
	if err := s.repo.Create(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.bus.PublishNew(eventbus.EventTypeTaskCreated, t.ID, "", map[string]string{"website_id": t.WebsiteID})
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	// Status is excluded: the transition endpoint is the only status write path.
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Title != "" {
		t.Title = req.Title
	}
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.Priority != "" {
		t.Priority = req.Priority
	}
	if req.DependsOn != nil {
		t.DependsOn = req.DependsOn
	}
	if req.SitemapTargets != nil {
		t.SitemapTargets = req.SitemapTargets
	}
	if req.Tags != nil {
		t.Tags = req.Tags
	}
	if req.Metadata != nil {
		t.Metadata = req.Metadata
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if err := t.Validate(); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, err.Error(), nil)
		return
	}
	if err := s.repo.Update(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Header.Get("X-Role") != "admin" {
		cerr.SetNewJSONError(ctx, cerr.PermissionDenied, "task delete requires the admin role", nil)
		return
	}
	if err := s.repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"deleted": true})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	websiteID := r.URL.Query().Get("website_id")
	if websiteID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id is required", nil)
		return
	}
	stats, err := s.planner.Statistics(ctx, websiteID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, stats)
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := s.planner.WithDependencies(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.engine.History(ctx, transition.EntityTypeEditorialTask, chi.URLParam(r, "id"))
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
	t, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	res, err := s.engine.Execute(ctx, transition.TaskMachine, s.repo, transition.Request{
		EntityID:     t.ID,
		EntityType:   transition.EntityTypeEditorialTask,
		CurrentState: transition.State(t.Status),
		Event:        transition.Event(req.Event),
		Actor:        req.Actor,
		ActorID:      req.ActorID,
		Metadata:     req.Metadata,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if res.Success {
		s.bus.PublishNew(eventbus.EventTypeTaskStatusChanged, t.ID, string(res.To),
			map[string]string{"website_id": t.WebsiteID})
	}
	// Domain rejections (invalid event, guard failure) ride in the result body.
	cerr.SetJSONResponse(ctx, res)
}
