package section

import "context"

type Repository interface {
	// Insert places the section at position s.Order (appended when out of
	// range) and re-indexes the page to a dense 0..N-1 sequence.
	Insert(ctx context.Context, s *Section) error
	Get(ctx context.Context, id string) (*Section, error)
	ListByPage(ctx context.Context, pageID string) ([]*Section, error)
	// UpdateContent replaces a section's content without touching order.
	UpdateContent(ctx context.Context, id string, content map[string]any) error
	// Delete removes the section and closes the order gap.
	Delete(ctx context.Context, id string) error
	// Reorder rewrites the page's order to match orderedIDs exactly.
	Reorder(ctx context.Context, pageID string, orderedIDs []string) error

	AddVersion(ctx context.Context, v *Version) error
	ListVersions(ctx context.Context, sectionID string) ([]*Version, error)
}
