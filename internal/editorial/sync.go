package editorial

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/craftled/contentops/pkg/cerr"
)

// sourceFile is the on-disk shape of an editorial task source.
type sourceFile struct {
	WebsiteID string       `yaml:"website_id"`
	Tasks     []sourceTask `yaml:"tasks"`
}

type sourceTask struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Type            TaskType `yaml:"task_type"`
	Priority        Priority `yaml:"priority"`
	DependsOn       []string `yaml:"depends_on"`
	SitemapTargets  []string `yaml:"sitemap_targets"`
	SEO             SEOMeta  `yaml:"seo"`
	WordCountTarget int      `yaml:"word_count_target"`
	Tags            []string `yaml:"tags"`
}

// Syncer imports editorial tasks from external YAML sources, recording the
// file path and content hash on each task so unchanged files are skipped.
type Syncer struct {
	repo Repository
}

func NewSyncer(repo Repository) *Syncer {
	return &Syncer{repo: repo}
}

// ImportFile reads one YAML source and upserts its tasks. Returns the number
// of tasks created or updated; zero when the file hash is unchanged.
func (s *Syncer) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read task source: %w", err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.repo.ListByYAMLPath(ctx, path)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 && existing[0].YAMLFileHash == hash {
		return 0, nil
	}

	var src sourceFile
	if err := yaml.Unmarshal(data, &src); err != nil {
		return 0, fmt.Errorf("parse task source %s: %w", path, err)
	}
	if src.WebsiteID == "" {
		return 0, fmt.Errorf("task source %s has no website_id", path)
	}

	byID := make(map[string]*Task, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
	}

	imported := 0
	now := time.Now()
	for _, st := range src.Tasks {
		id := st.ID
		if id == "" {
			id = ulid.Make().String()
		}
		priority := st.Priority
		if priority == "" {
			priority = PriorityMedium
		}
		if prev, ok := byID[id]; ok {
			prev.Title = st.Title
			prev.Description = st.Description
			prev.Type = st.Type
			prev.Priority = priority
			prev.DependsOn = st.DependsOn
			prev.SitemapTargets = st.SitemapTargets
			prev.SEO = st.SEO
			prev.WordCountTarget = st.WordCountTarget
			prev.Tags = st.Tags
			prev.YAMLFileHash = hash
			prev.UpdatedAt = now
			if err := prev.Validate(); err != nil {
				return imported, cerr.NewError(cerr.InvalidArgument, err.Error(), nil)
			}
			if err := s.repo.Update(ctx, prev); err != nil {
				return imported, err
			}
		} else {
			t := &Task{
				ID:              id,
				WebsiteID:       src.WebsiteID,
				Title:           st.Title,
				Description:     st.Description,
				Type:            st.Type,
				Status:          StatusBacklog,
				Priority:        priority,
				DependsOn:       st.DependsOn,
				SitemapTargets:  st.SitemapTargets,
				SEO:             st.SEO,
				WordCountTarget: st.WordCountTarget,
				Tags:            st.Tags,
				YAMLFilePath:    path,
				YAMLFileHash:    hash,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := t.Validate(); err != nil {
				return imported, cerr.NewError(cerr.InvalidArgument, err.Error(), nil)
			}
			if err := s.repo.Create(ctx, t); err != nil {
				return imported, err
			}
		}
		imported++
	}
	return imported, nil
}

// ImportDir imports every YAML file under dir once.
func (s *Syncer) ImportDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read task source dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		n, err := s.ImportFile(ctx, path)
		if err != nil {
			slog.Error("task source import failed", "path", path, "error", err)
			continue
		}
		if n > 0 {
			slog.Info("imported task source", "path", path, "tasks", n)
		}
	}
	return nil
}

// Watch re-imports task sources as they change. Blocks until ctx is done.
func (s *Syncer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	slog.Info("watching task sources", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isYAML(event.Name) {
				continue
			}
			if _, err := s.ImportFile(ctx, event.Name); err != nil {
				slog.Error("task source import failed", "path", event.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("task source watcher error", "error", err)
		}
	}
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
