package transition

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Failure codes for expected domain outcomes. Infrastructure problems are
// returned as errors instead.
const (
	FailureInvalidEvent = "INVALID_EVENT"
	FailureGuardFailed  = "GUARD_FAILED"
)

type Request struct {
	EntityID     string
	EntityType   string
	CurrentState State
	Event        Event
	Actor        string
	ActorID      string
	Metadata     map[string]any
}

type Result struct {
	Success bool   `json:"success"`
	From    State  `json:"from_state,omitempty"`
	To      State  `json:"to_state,omitempty"`
	Code    string `json:"error_code,omitempty"`
	Reason  string `json:"error,omitempty"`
}

// StateWriter is implemented by the owning repository; the engine is the only
// caller allowed to move an entity's status column.
type StateWriter interface {
	SetState(ctx context.Context, entityID string, to State) error
}

type Engine struct {
	audit AuditRepository
}

func NewEngine(audit AuditRepository) *Engine {
	return &Engine{audit: audit}
}

// Execute validates req against the machine, persists the new state through
// the writer and appends an audit row. Domain rejections come back in the
// Result with a nil error; only storage failures raise.
//
// Re-issuing an identical request after success fails with INVALID_EVENT
// because the entity has already advanced; callers must re-read the current
// state before retrying.
func (e *Engine) Execute(ctx context.Context, m *Machine, w StateWriter, req Request) (Result, error) {
	t, ok := m.Next(req.CurrentState, req.Event)
	if !ok {
		return Result{
			Success: false,
			From:    req.CurrentState,
			Code:    FailureInvalidEvent,
			Reason:  fmt.Sprintf("event %q is not valid in state %q for %s", req.Event, req.CurrentState, m.EntityType),
		}, nil
	}
	if t.Guard != nil {
		if ok, reason := t.Guard(req); !ok {
			return Result{
				Success: false,
				From:    req.CurrentState,
				Code:    FailureGuardFailed,
				Reason:  reason,
			}, nil
		}
	}

	if err := w.SetState(ctx, req.EntityID, t.To); err != nil {
		return Result{}, fmt.Errorf("persist %s state: %w", m.EntityType, err)
	}

	entry := &AuditEntry{
		ID:         ulid.Make().String(),
		EntityID:   req.EntityID,
		EntityType: req.EntityType,
		Event:      string(req.Event),
		Actor:      req.Actor,
		ActorID:    req.ActorID,
		FromState:  string(req.CurrentState),
		ToState:    string(t.To),
		Metadata:   req.Metadata,
		CreatedAt:  time.Now(),
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		return Result{}, fmt.Errorf("append audit entry: %w", err)
	}

	return Result{Success: true, From: req.CurrentState, To: t.To}, nil
}

// History returns the audit trail for one entity, oldest first.
func (e *Engine) History(ctx context.Context, entityType, entityID string) ([]*AuditEntry, error) {
	return e.audit.ListForEntity(ctx, entityType, entityID)
}
