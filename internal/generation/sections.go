package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/craftled/contentops/internal/ai"
	"github.com/craftled/contentops/internal/section"
	"github.com/craftled/contentops/pkg/cerr"
)

// SectionResult is the per-section outcome of an optimize call. Placeholder
// marks content that came from the local fallback instead of the provider;
// the call itself still succeeds.
type SectionResult struct {
	SectionID   string         `json:"section_id"`
	Success     bool           `json:"success"`
	Placeholder bool           `json:"placeholder"`
	Content     map[string]any `json:"content"`
}

// OptimizeSection regenerates one section's content. The previous content is
// versioned as human-authored before the ai-authored result lands, so a bad
// generation is always one undo away. Provider failure degrades to
// placeholder content and is logged, never surfaced as a request error.
func (o *Orchestrator) OptimizeSection(ctx context.Context, sectionID string, tenant TenantContext) (*SectionResult, error) {
	sec, err := o.sections.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	generated, placeholder := o.generateSectionContent(ctx, sec, tenant)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err := o.sections.AddVersion(ctx, &section.Version{
		ID:        ulid.Make().String(),
		SectionID: sec.ID,
		Author:    "human",
		Content:   sec.Content,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}
	if err := o.sections.UpdateContent(ctx, sec.ID, generated); err != nil {
		return nil, err
	}
	if err := o.sections.AddVersion(ctx, &section.Version{
		ID:        ulid.Make().String(),
		SectionID: sec.ID,
		Author:    "ai",
		Content:   generated,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}

	return &SectionResult{
		SectionID:   sec.ID,
		Success:     true,
		Placeholder: placeholder,
		Content:     generated,
	}, nil
}

// OptimizeAllSections walks the page in order, one section at a time. A
// failing section is recorded and the walk continues.
func (o *Orchestrator) OptimizeAllSections(ctx context.Context, pageID string, tenant TenantContext) ([]*SectionResult, error) {
	sections, err := o.sections.ListByPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, cerr.NewError(cerr.NotFound, "page has no sections", nil)
	}
	var results []*SectionResult
	for i, sec := range sections {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(o.pacing):
			}
		}
		res, err := o.OptimizeSection(ctx, sec.ID, tenant)
		if err != nil {
			slog.WarnContext(ctx, "section optimization failed, continuing page",
				"section_id", sec.ID, "error", err)
			results = append(results, &SectionResult{SectionID: sec.ID, Success: false})
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// GenerateSections fills empty sections of a page, leaving sections that
// already have content untouched.
func (o *Orchestrator) GenerateSections(ctx context.Context, pageID string, tenant TenantContext) ([]*SectionResult, error) {
	sections, err := o.sections.ListByPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	var results []*SectionResult
	for _, sec := range sections {
		if len(sec.Content) > 0 {
			continue
		}
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		generated, placeholder := o.generateSectionContent(ctx, sec, tenant)
		if err := o.sections.UpdateContent(ctx, sec.ID, generated); err != nil {
			results = append(results, &SectionResult{SectionID: sec.ID, Success: false})
			continue
		}
		if err := o.sections.AddVersion(ctx, &section.Version{
			ID:        ulid.Make().String(),
			SectionID: sec.ID,
			Author:    "ai",
			Content:   generated,
			CreatedAt: time.Now(),
		}); err != nil {
			return results, err
		}
		results = append(results, &SectionResult{
			SectionID:   sec.ID,
			Success:     true,
			Placeholder: placeholder,
			Content:     generated,
		})
	}
	return results, nil
}

// generateSectionContent asks the provider for section content and falls
// back to the deterministic placeholder for the section type on any failure.
func (o *Orchestrator) generateSectionContent(ctx context.Context, sec *section.Section, tenant TenantContext) (map[string]any, bool) {
	text, err := o.provider.Generate(ctx, tenant.systemPrompt(), sectionUserPrompt(sec))
	if err == nil {
		if data, parseErr := ai.ExtractJSONObject(text); parseErr == nil {
			return data, false
		} else {
			err = parseErr
		}
	}
	slog.WarnContext(ctx, "section generation failed, using placeholder",
		"section_id", sec.ID, "section_type", sec.Type,
		"error", fmt.Sprintf("%v", err))
	return placeholderContent(sec.Type), true
}
