package content

import "time"

type Status string

const (
	StatusIdea            Status = "idea"
	StatusPlanned         Status = "planned"
	StatusBriefCreated    Status = "brief_created"
	StatusDraft           Status = "draft"
	StatusInReview        Status = "in_editorial_review"
	StatusNeedsChanges    Status = "needs_changes"
	StatusApproved        Status = "approved"
	StatusScheduled       Status = "scheduled"
	StatusPublished       Status = "published"
	StatusArchived        Status = "archived"
)

type AuthorType string

const (
	AuthorTypeHuman AuthorType = "human"
	AuthorTypeAgent AuthorType = "agent"
)

// Block is one unit of the ordered body sequence.
type Block struct {
	Type    string         `json:"type"`
	Content map[string]any `json:"content"`
}

type Item struct {
	ID              string         `json:"id"`
	WebsiteID       string         `json:"website_id"`
	Title           string         `json:"title"`
	Slug            string         `json:"slug"`
	Status          Status         `json:"status"`
	AuthorType      AuthorType     `json:"author_type,omitempty"`
	AuthorID        string         `json:"author_id,omitempty"`
	Body            []Block        `json:"body"`
	PageID          string         `json:"page_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	EditorialTaskID string         `json:"editorial_task_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
