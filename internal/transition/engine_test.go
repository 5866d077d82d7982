package transition_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/transition"
	"github.com/craftled/contentops/internal/transition/repositoryimpl"
)

type stateRecorder struct {
	states map[string]transition.State
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{states: map[string]transition.State{}}
}

func (w *stateRecorder) SetState(_ context.Context, entityID string, to transition.State) error {
	w.states[entityID] = to
	return nil
}

func TestExecuteValidTransition(t *testing.T) {
	ctx := context.Background()
	audit := repositoryimpl.NewMemoryAuditRepository()
	engine := transition.NewEngine(audit)
	writer := newStateRecorder()

	res, err := engine.Execute(ctx, transition.TaskMachine, writer, transition.Request{
		EntityID:     "task-1",
		EntityType:   transition.EntityTypeEditorialTask,
		CurrentState: "backlog",
		Event:        transition.TaskEventReady,
		Actor:        "human",
		ActorID:      "u-1",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, transition.State("backlog"), res.From)
	assert.Equal(t, transition.State("ready"), res.To)
	assert.Equal(t, transition.State("ready"), writer.states["task-1"])

	entries, err := audit.ListForEntity(ctx, transition.EntityTypeEditorialTask, "task-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "backlog", entries[0].FromState)
	assert.Equal(t, "ready", entries[0].ToState)
	assert.Equal(t, string(transition.TaskEventReady), entries[0].Event)
}

func TestExecuteInvalidEvent(t *testing.T) {
	ctx := context.Background()
	audit := repositoryimpl.NewMemoryAuditRepository()
	engine := transition.NewEngine(audit)
	writer := newStateRecorder()

	res, err := engine.Execute(ctx, transition.TaskMachine, writer, transition.Request{
		EntityID:     "task-1",
		EntityType:   transition.EntityTypeEditorialTask,
		CurrentState: "completed",
		Event:        transition.TaskEventStart,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, transition.FailureInvalidEvent, res.Code)

	// Rejected transitions must not leave an audit trail.
	entries, err := audit.ListForEntity(ctx, transition.EntityTypeEditorialTask, "task-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, writer.states)
}

func TestExecuteGuardFailed(t *testing.T) {
	ctx := context.Background()
	audit := repositoryimpl.NewMemoryAuditRepository()
	engine := transition.NewEngine(audit)
	writer := newStateRecorder()

	res, err := engine.Execute(ctx, transition.TaskMachine, writer, transition.Request{
		EntityID:     "task-1",
		EntityType:   transition.EntityTypeEditorialTask,
		CurrentState: "ready",
		Event:        transition.TaskEventStart,
		Metadata:     map[string]any{"has_blockers": true},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, transition.FailureGuardFailed, res.Code)
	assert.Empty(t, writer.states)
}

// Re-issuing the same transition after success is rejected: the state has
// already advanced, so the caller must re-read before retrying.
func TestExecuteNotIdempotent(t *testing.T) {
	ctx := context.Background()
	audit := repositoryimpl.NewMemoryAuditRepository()
	engine := transition.NewEngine(audit)
	writer := newStateRecorder()

	req := transition.Request{
		EntityID:     "ticket-1",
		EntityType:   transition.EntityTypeQuestionTicket,
		CurrentState: "open",
		Event:        transition.TicketEventClose,
	}
	res, err := engine.Execute(ctx, transition.TicketMachine, writer, req)
	require.NoError(t, err)
	require.True(t, res.Success)

	// Second issue with the advanced state: close is undefined for closed.
	req.CurrentState = writer.states["ticket-1"]
	res, err = engine.Execute(ctx, transition.TicketMachine, writer, req)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, transition.FailureInvalidEvent, res.Code)

	entries, err := audit.ListForEntity(ctx, transition.EntityTypeQuestionTicket, "ticket-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAllDefinedPairsSucceed(t *testing.T) {
	ctx := context.Background()
	for _, m := range []*transition.Machine{
		transition.TaskMachine,
		transition.ContentMachine,
		transition.TicketMachine,
	} {
		for from, events := range m.Transitions {
			for event, tr := range events {
				audit := repositoryimpl.NewMemoryAuditRepository()
				engine := transition.NewEngine(audit)
				writer := newStateRecorder()

				res, err := engine.Execute(ctx, m, writer, transition.Request{
					EntityID:     "e-1",
					EntityType:   m.EntityType,
					CurrentState: from,
					Event:        event,
					Metadata: map[string]any{
						// Satisfy every guard the machines define.
						"publish_at": "2026-01-01T00:00:00Z",
						"answer":     "because",
					},
				})
				require.NoError(t, err)
				require.True(t, res.Success, "%s: %s --%s--> %s", m.EntityType, from, event, tr.To)
				assert.Equal(t, tr.To, res.To)

				entries, err := audit.ListForEntity(ctx, m.EntityType, "e-1")
				require.NoError(t, err)
				assert.Len(t, entries, 1)
			}
		}
	}
}
