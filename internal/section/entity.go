package section

import "time"

// CollectionSource binds a section to a dynamic data collection resolved at
// render time.
type CollectionSource struct {
	Collection string         `json:"collection"`
	Limit      int            `json:"limit,omitempty"`
	Filter     map[string]any `json:"filter,omitempty"`
	Sort       string         `json:"sort,omitempty"`
}

// Section is one typed, ordered block of page content. Order is dense and
// zero-based within a page; the repository re-indexes after every mutation.
type Section struct {
	ID               string            `json:"id"`
	PageID           string            `json:"page_id"`
	Type             string            `json:"type"`
	Variant          string            `json:"variant,omitempty"`
	Order            int               `json:"order"`
	Content          map[string]any    `json:"content"`
	Prompts          map[string]string `json:"prompts,omitempty"`
	AIHints          map[string]string `json:"ai_hints,omitempty"`
	CollectionSource *CollectionSource `json:"collectionSource,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Version is one entry in a section's undo trail. Optimization writes a
// human-authored version of the pre-optimization content, then an ai-authored
// version of the result.
type Version struct {
	ID        string         `json:"id"`
	SectionID string         `json:"section_id"`
	Author    string         `json:"author"` // "human" or "ai"
	Content   map[string]any `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}
