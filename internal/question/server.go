package question

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

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
	r.Get("/questions", s.handleList)
	r.Post("/questions", s.handleCreate)
	r.Get("/questions/{id}", s.handleGet)
	r.Post("/questions/{id}/answer", s.handleAnswer)
	r.Post("/questions/{id}/transition", s.handleTransition)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	websiteID := r.URL.Query().Get("website_id")
	if websiteID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id is required", nil)
		return
	}
	tickets, err := s.repo.ListByWebsite(ctx, websiteID, Status(r.URL.Query().Get("status")))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tickets": tickets})
}

type createRequest struct {
	WebsiteID      string `json:"website_id"`
	CreatorAgentID string `json:"creator_agent_id"`
	TargetRole     string `json:"target_role"`
	TargetUserID   string `json:"target_user_id"`
	Question       string `json:"question"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.WebsiteID == "" || req.Question == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "website_id and question are required", nil)
		return
	}
	now := time.Now()
	t := &Ticket{
		ID:             ulid.Make().String(),
		WebsiteID:      req.WebsiteID,
		CreatorAgentID: req.CreatorAgentID,
		TargetRole:     req.TargetRole,
		TargetUserID:   req.TargetUserID,
		Question:       req.Question,
		Status:         Status(transition.TicketMachine.Initial),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
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

type answerRequest struct {
	Answer     string `json:"answer"`
	AnsweredBy string `json:"answered_by"`
}

// handleAnswer stores the answer fields and drives the ticket through the
// answer transition in one call.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	res, err := s.engine.Execute(ctx, transition.TicketMachine, s.repo, transition.Request{
		EntityID:     t.ID,
		EntityType:   transition.EntityTypeQuestionTicket,
		CurrentState: transition.State(t.Status),
		Event:        transition.TicketEventAnswer,
		Actor:        "human",
		ActorID:      req.AnsweredBy,
		Metadata:     map[string]any{"answer": req.Answer},
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if res.Success {
		t.Answer = req.Answer
		t.AnsweredBy = req.AnsweredBy
		if err := s.repo.Update(ctx, t); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
	}
	cerr.SetJSONResponse(ctx, res)
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
	res, err := s.engine.Execute(ctx, transition.TicketMachine, s.repo, transition.Request{
		EntityID:     t.ID,
		EntityType:   transition.EntityTypeQuestionTicket,
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
	cerr.SetJSONResponse(ctx, res)
}
