package transition

// Entity type tags used in the shared audit log.
const (
	EntityTypeEditorialTask  = "editorial_task"
	EntityTypeContentItem    = "content_item"
	EntityTypeQuestionTicket = "question_ticket"
)

// Editorial task events.
const (
	TaskEventReady          Event = "ready"
	TaskEventStart          Event = "start"
	TaskEventSubmitReview   Event = "submit_review"
	TaskEventApprove        Event = "approve"
	TaskEventRequestChanges Event = "request_changes"
	TaskEventComplete       Event = "complete"
	TaskEventBlock          Event = "block"
	TaskEventUnblock        Event = "unblock"
	TaskEventCancel         Event = "cancel"
	TaskEventReopen         Event = "reopen"
)

func hasBlockersGuard(req Request) (bool, string) {
	if blocked, ok := req.Metadata["has_blockers"].(bool); ok && blocked {
		return false, "task has unresolved blockers"
	}
	return true, ""
}

// TaskMachine governs editorial_tasks.status.
var TaskMachine = &Machine{
	EntityType: EntityTypeEditorialTask,
	Initial:    "backlog",
	Transitions: map[State]map[Event]Transition{
		"backlog": {
			TaskEventReady:  {To: "ready"},
			TaskEventStart:  {To: "in_progress", Guard: hasBlockersGuard},
			TaskEventCancel: {To: "cancelled"},
		},
		"ready": {
			TaskEventStart:  {To: "in_progress", Guard: hasBlockersGuard},
			TaskEventBlock:  {To: "blocked"},
			TaskEventCancel: {To: "cancelled"},
		},
		"in_progress": {
			TaskEventSubmitReview: {To: "in_review"},
			TaskEventComplete:     {To: "completed"},
			TaskEventBlock:        {To: "blocked"},
			TaskEventCancel:       {To: "cancelled"},
		},
		"in_review": {
			TaskEventApprove:        {To: "completed"},
			TaskEventRequestChanges: {To: "in_progress"},
			TaskEventCancel:         {To: "cancelled"},
		},
		"blocked": {
			TaskEventUnblock: {To: "ready"},
			TaskEventCancel:  {To: "cancelled"},
		},
		"completed": {
			TaskEventReopen: {To: "backlog"},
		},
		"cancelled": {},
	},
}

// Content item events.
const (
	ContentEventPlan           Event = "plan"
	ContentEventCreateBrief    Event = "create_brief"
	ContentEventDraft          Event = "draft"
	ContentEventSubmitReview   Event = "submit_review"
	ContentEventRequestChanges Event = "request_changes"
	ContentEventResubmit       Event = "resubmit"
	ContentEventApprove        Event = "approve"
	ContentEventSchedule       Event = "schedule"
	ContentEventUnschedule     Event = "unschedule"
	ContentEventPublish        Event = "publish"
	ContentEventArchive        Event = "archive"
)

func publishAtGuard(req Request) (bool, string) {
	if v, ok := req.Metadata["publish_at"].(string); !ok || v == "" {
		return false, "scheduling requires a publish_at timestamp"
	}
	return true, ""
}

// ContentMachine governs the ordered content lifecycle.
var ContentMachine = &Machine{
	EntityType: EntityTypeContentItem,
	Initial:    "idea",
	Transitions: map[State]map[Event]Transition{
		"idea": {
			ContentEventPlan:    {To: "planned"},
			ContentEventArchive: {To: "archived"},
		},
		"planned": {
			ContentEventCreateBrief: {To: "brief_created"},
			ContentEventArchive:     {To: "archived"},
		},
		"brief_created": {
			ContentEventDraft:   {To: "draft"},
			ContentEventArchive: {To: "archived"},
		},
		"draft": {
			ContentEventSubmitReview: {To: "in_editorial_review"},
			ContentEventArchive:      {To: "archived"},
		},
		"in_editorial_review": {
			ContentEventRequestChanges: {To: "needs_changes"},
			ContentEventApprove:        {To: "approved"},
		},
		"needs_changes": {
			ContentEventResubmit: {To: "in_editorial_review"},
			ContentEventArchive:  {To: "archived"},
		},
		"approved": {
			ContentEventSchedule: {To: "scheduled", Guard: publishAtGuard},
			ContentEventPublish:  {To: "published"},
		},
		"scheduled": {
			ContentEventPublish:    {To: "published"},
			ContentEventUnschedule: {To: "approved"},
		},
		"published": {
			ContentEventArchive: {To: "archived"},
		},
		"archived": {},
	},
}

// Question ticket events.
const (
	TicketEventAnswer Event = "answer"
	TicketEventClose  Event = "close"
	TicketEventReopen Event = "reopen"
)

func answerGuard(req Request) (bool, string) {
	if v, ok := req.Metadata["answer"].(string); !ok || v == "" {
		return false, "answering requires a non-empty answer"
	}
	return true, ""
}

// TicketMachine governs question_tickets.status.
var TicketMachine = &Machine{
	EntityType: EntityTypeQuestionTicket,
	Initial:    "open",
	Transitions: map[State]map[Event]Transition{
		"open": {
			TicketEventAnswer: {To: "answered", Guard: answerGuard},
			TicketEventClose:  {To: "closed"},
		},
		"answered": {
			TicketEventClose:  {To: "closed"},
			TicketEventReopen: {To: "open"},
		},
		"closed": {},
	},
}
