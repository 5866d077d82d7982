package question

import "time"

type Status string

const (
	StatusOpen     Status = "open"
	StatusAnswered Status = "answered"
	StatusClosed   Status = "closed"
)

// Ticket is a question raised by an agent towards a role or person.
type Ticket struct {
	ID             string    `json:"id"`
	WebsiteID      string    `json:"website_id"`
	CreatorAgentID string    `json:"creator_agent_id"`
	TargetRole     string    `json:"target_role,omitempty"`
	TargetUserID   string    `json:"target_user_id,omitempty"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer,omitempty"`
	AnsweredBy     string    `json:"answered_by,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
