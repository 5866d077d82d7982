package repositoryimpl_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/section"
	"github.com/craftled/contentops/internal/section/repositoryimpl"
	"github.com/craftled/contentops/pkg/cerr"
)

func newSection(id, pageID string, order int) *section.Section {
	now := time.Now()
	return &section.Section{
		ID:        id,
		PageID:    pageID,
		Type:      "rich_text",
		Order:     order,
		Content:   map[string]any{"text": id},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func assertDenseOrder(t *testing.T, sections []*section.Section, wantIDs []string) {
	t.Helper()
	require.Len(t, sections, len(wantIDs))
	for i, s := range sections {
		assert.Equal(t, i, s.Order, "position %d", i)
		assert.Equal(t, wantIDs[i], s.ID, "position %d", i)
	}
}

func TestInsertAtPositionReindexes(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()

	require.NoError(t, repo.Insert(ctx, newSection("s-a", "p-1", -1)))
	require.NoError(t, repo.Insert(ctx, newSection("s-b", "p-1", -1)))
	require.NoError(t, repo.Insert(ctx, newSection("s-c", "p-1", 1)))

	sections, err := repo.ListByPage(ctx, "p-1")
	require.NoError(t, err)
	assertDenseOrder(t, sections, []string{"s-a", "s-c", "s-b"})
}

func TestInsertOutOfRangeAppends(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()

	require.NoError(t, repo.Insert(ctx, newSection("s-a", "p-1", 0)))
	require.NoError(t, repo.Insert(ctx, newSection("s-b", "p-1", 99)))

	sections, err := repo.ListByPage(ctx, "p-1")
	require.NoError(t, err)
	assertDenseOrder(t, sections, []string{"s-a", "s-b"})
}

func TestDeleteClosesGap(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	for _, id := range []string{"s-a", "s-b", "s-c", "s-d"} {
		require.NoError(t, repo.Insert(ctx, newSection(id, "p-1", -1)))
	}

	require.NoError(t, repo.Delete(ctx, "s-b"))

	sections, err := repo.ListByPage(ctx, "p-1")
	require.NoError(t, err)
	assertDenseOrder(t, sections, []string{"s-a", "s-c", "s-d"})
}

func TestReorderMatchesRequestedSequence(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	for _, id := range []string{"s-a", "s-b", "s-c"} {
		require.NoError(t, repo.Insert(ctx, newSection(id, "p-1", -1)))
	}

	require.NoError(t, repo.Reorder(ctx, "p-1", []string{"s-c", "s-a", "s-b"}))

	sections, err := repo.ListByPage(ctx, "p-1")
	require.NoError(t, err)
	assertDenseOrder(t, sections, []string{"s-c", "s-a", "s-b"})
}

func TestReorderRejectsPartialList(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	for _, id := range []string{"s-a", "s-b"} {
		require.NoError(t, repo.Insert(ctx, newSection(id, "p-1", -1)))
	}

	err := repo.Reorder(ctx, "p-1", []string{"s-a"})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	err = repo.Reorder(ctx, "p-1", []string{"s-a", "s-a"})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestReorderIgnoresOtherPages(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	require.NoError(t, repo.Insert(ctx, newSection("s-a", "p-1", -1)))
	require.NoError(t, repo.Insert(ctx, newSection("s-b", "p-1", -1)))
	require.NoError(t, repo.Insert(ctx, newSection("s-x", "p-2", -1)))

	require.NoError(t, repo.Reorder(ctx, "p-1", []string{"s-b", "s-a"}))

	other, err := repo.ListByPage(ctx, "p-2")
	require.NoError(t, err)
	assertDenseOrder(t, other, []string{"s-x"})
}

func TestVersionTrailOrdered(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	require.NoError(t, repo.Insert(ctx, newSection("s-a", "p-1", -1)))

	require.NoError(t, repo.AddVersion(ctx, &section.Version{
		ID: "v-1", SectionID: "s-a", Author: "human",
		Content: map[string]any{"text": "before"}, CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.AddVersion(ctx, &section.Version{
		ID: "v-2", SectionID: "s-a", Author: "ai",
		Content: map[string]any{"text": "after"}, CreatedAt: time.Now(),
	}))

	versions, err := repo.ListVersions(ctx, "s-a")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "human", versions[0].Author)
	assert.Equal(t, "ai", versions[1].Author)
}
