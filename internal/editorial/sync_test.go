package editorial_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/editorial"
	"github.com/craftled/contentops/internal/editorial/repositoryimpl"
)

const taskSource = `website_id: site-1
tasks:
  - id: guide-hiking
    title: Hiking guide
    task_type: article
    priority: high
    tags: [guide]
  - id: fix-contact
    title: Fix contact page
    task_type: fix
`

func TestImportFileCreatesAndSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	syncer := editorial.NewSyncer(repo)

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(taskSource), 0644))

	n, err := syncer.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	task, err := repo.Get(ctx, "guide-hiking")
	require.NoError(t, err)
	assert.Equal(t, editorial.StatusBacklog, task.Status)
	assert.Equal(t, editorial.PriorityHigh, task.Priority)
	assert.Equal(t, path, task.YAMLFilePath)
	assert.NotEmpty(t, task.YAMLFileHash)

	// Unchanged file: hash matches, nothing re-imported.
	n, err = syncer.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportFileUpdatesChanged(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	syncer := editorial.NewSyncer(repo)

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(taskSource), 0644))

	_, err := syncer.ImportFile(ctx, path)
	require.NoError(t, err)

	changed := `website_id: site-1
tasks:
  - id: guide-hiking
    title: Hiking guide (updated)
    task_type: article
    priority: urgent
`
	require.NoError(t, os.WriteFile(path, []byte(changed), 0644))

	n, err := syncer.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	task, err := repo.Get(ctx, "guide-hiking")
	require.NoError(t, err)
	assert.Equal(t, "Hiking guide (updated)", task.Title)
	assert.Equal(t, editorial.PriorityUrgent, task.Priority)
}
