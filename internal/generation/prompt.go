package generation

import (
	"fmt"
	"strings"

	"github.com/craftled/contentops/internal/editorial"
	"github.com/craftled/contentops/internal/section"
)

// TenantContext carries the per-website voice settings into prompts.
type TenantContext struct {
	WebsiteID string
	SiteName  string
	Audience  string
	Tone      string
}

func (t TenantContext) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an expert content writer producing publish-ready website copy.")
	if t.SiteName != "" {
		fmt.Fprintf(&sb, " You write for %s.", t.SiteName)
	}
	if t.Audience != "" {
		fmt.Fprintf(&sb, " The audience is %s.", t.Audience)
	}
	if t.Tone != "" {
		fmt.Fprintf(&sb, " Use a %s tone.", t.Tone)
	}
	sb.WriteString(" Respond with a single JSON object and nothing else.")
	return sb.String()
}

// sectionSchemas describe the JSON shape expected back per section type.
// Unknown types fall through to a generic text schema.
var sectionSchemas = map[string]string{
	"hero":         `{"headline": "...", "subheadline": "...", "cta_text": "..."}`,
	"faq":          `{"items": [{"question": "...", "answer": "..."}]}`,
	"feature_list": `{"features": [{"title": "...", "description": "..."}]}`,
	"testimonial":  `{"quote": "...", "attribution": "..."}`,
	"rich_text":    `{"text": "..."}`,
}

func sectionSchema(sectionType string) string {
	if schema, ok := sectionSchemas[sectionType]; ok {
		return schema
	}
	return sectionSchemas["rich_text"]
}

func sectionUserPrompt(sec *section.Section) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write content for a %q page section", sec.Type)
	if sec.Variant != "" {
		fmt.Fprintf(&sb, " (variant %q)", sec.Variant)
	}
	sb.WriteString(".\n")
	if prompt := sec.Prompts["content"]; prompt != "" {
		fmt.Fprintf(&sb, "Brief: %s\n", prompt)
	}
	for key, hint := range sec.AIHints {
		fmt.Fprintf(&sb, "Hint (%s): %s\n", key, hint)
	}
	fmt.Fprintf(&sb, "Return JSON shaped like: %s", sectionSchema(sec.Type))
	return sb.String()
}

func taskUserPrompt(task *editorial.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Draft a %s titled %q.\n", task.Type, task.Title)
	if task.Description != "" {
		fmt.Fprintf(&sb, "Brief: %s\n", task.Description)
	}
	if task.SEO.TargetQuery != "" {
		fmt.Fprintf(&sb, "Target search query: %s\n", task.SEO.TargetQuery)
	}
	if len(task.SEO.Keywords) > 0 {
		fmt.Fprintf(&sb, "Keywords to cover: %s\n", strings.Join(task.SEO.Keywords, ", "))
	}
	if task.WordCountTarget > 0 {
		fmt.Fprintf(&sb, "Target length: about %d words.\n", task.WordCountTarget)
	}
	sb.WriteString(`Return JSON shaped like: {"title": "...", "blocks": [{"type": "rich_text", "content": {"text": "..."}}], "meta_description": "..."}`)
	return sb.String()
}
