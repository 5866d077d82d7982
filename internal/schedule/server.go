package schedule

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/craftled/contentops/pkg/cerr"
)

type Server struct {
	manager *Manager
}

func NewServer(manager *Manager) *Server {
	return &Server{manager: manager}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/websites/{websiteID}/schedules", s.handleList)
	r.Post("/websites/{websiteID}/schedules", s.handleCreate)
	r.Post("/websites/{websiteID}/schedules/defaults", s.handleCreateDefaults)
	r.Get("/websites/{websiteID}/schedules/{type}", s.handleGet)
	r.Put("/websites/{websiteID}/schedules/{type}", s.handleUpdate)
	r.Delete("/websites/{websiteID}/schedules/{type}", s.handleDelete)
	r.Post("/websites/{websiteID}/schedules/{type}/pause", s.handlePause)
	r.Post("/websites/{websiteID}/schedules/{type}/resume", s.handleResume)
	r.Post("/websites/{websiteID}/schedules/{type}/trigger", s.handleTrigger)
	r.Get("/websites/{websiteID}/executions", s.handleListExecutions)
	r.Get("/websites/{websiteID}/executions/stats", s.handleStatistics)
	r.Get("/websites/{websiteID}/calendar", s.handleCalendar)
	r.Put("/executions/{id}", s.handleUpdateExecution)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := s.manager.List(ctx, chi.URLParam(r, "websiteID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"schedules": views})
}

type createScheduleRequest struct {
	ScheduleType   string `json:"schedule_type"`
	Frequency      string `json:"frequency"`
	CronExpression string `json:"cron_expression"`
	Enabled        *bool  `json:"enabled"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	created, err := s.manager.Create(ctx, CreateScheduleRequest{
		WebsiteID:      chi.URLParam(r, "websiteID"),
		ScheduleType:   Type(req.ScheduleType),
		Frequency:      req.Frequency,
		CronExpression: req.CronExpression,
		Enabled:        enabled,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, created)
}

func (s *Server) handleCreateDefaults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	created, err := s.manager.CreateDefaults(ctx, chi.URLParam(r, "websiteID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"schedules": created})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := s.manager.Get(ctx, chi.URLParam(r, "websiteID"), Type(chi.URLParam(r, "type")))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

type updateScheduleRequest struct {
	Frequency      *string `json:"frequency"`
	CronExpression *string `json:"cron_expression"`
	Enabled        *bool   `json:"enabled"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	updated, err := s.manager.Update(ctx, chi.URLParam(r, "websiteID"), Type(chi.URLParam(r, "type")), UpdateScheduleRequest{
		Frequency:      req.Frequency,
		CronExpression: req.CronExpression,
		Enabled:        req.Enabled,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.manager.Delete(ctx, chi.URLParam(r, "websiteID"), Type(chi.URLParam(r, "type"))); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"deleted": true})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	row, err := s.manager.Pause(ctx, chi.URLParam(r, "websiteID"), Type(chi.URLParam(r, "type")))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, row)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	row, err := s.manager.Resume(ctx, chi.URLParam(r, "websiteID"), Type(chi.URLParam(r, "type")))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, row)
}

type triggerRequest struct {
	TriggeredBy string `json:"triggered_by"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req triggerRequest
	if r.Body != nil {
		// Body is optional for a trigger.
		json.NewDecoder(r.Body).Decode(&req)
	}
	exec, err := s.manager.Trigger(ctx, chi.URLParam(r, "websiteID"), Type(chi.URLParam(r, "type")), req.TriggeredBy)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, exec)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := executionFilterFromQuery(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	executions, err := s.manager.ListExecutions(ctx, filter)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"executions": executions})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := executionFilterFromQuery(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	stats, err := s.manager.ExecutionStatistics(ctx, filter)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, stats)
}

func executionFilterFromQuery(r *http.Request) (ExecutionFilter, error) {
	filter := ExecutionFilter{WebsiteID: chi.URLParam(r, "websiteID")}
	q := r.URL.Query()
	filter.ScheduleType = Type(q.Get("schedule_type"))
	if v := q.Get("status"); v != "" {
		filter.Statuses = []ExecutionStatus{ExecutionStatus(v)}
	}
	for _, window := range []struct {
		param string
		dst   **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		if v := q.Get(window.param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, cerr.NewError(cerr.InvalidArgument, window.param+" must be RFC3339", err)
			}
			*window.dst = &t
		}
	}
	return filter, nil
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := executionFilterFromQuery(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	from := time.Now().AddDate(0, 0, -7)
	to := time.Now().AddDate(0, 0, 30)
	if filter.From != nil {
		from = *filter.From
	}
	if filter.To != nil {
		to = *filter.To
	}
	entries, err := s.manager.Calendar(ctx, filter.WebsiteID, from, to)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"entries": entries})
}

type updateExecutionRequest struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result"`
	Error  string         `json:"error"`
}

func (s *Server) handleUpdateExecution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	exec, err := s.manager.UpdateExecution(ctx, chi.URLParam(r, "id"), UpdateExecutionRequest{
		Status: ExecutionStatus(req.Status),
		Result: req.Result,
		Error:  req.Error,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, exec)
}
