package generation

// placeholderContent is the deterministic fallback used when the AI provider
// fails or returns something unparsable. Shapes mirror sectionSchemas so the
// UI renders them the same way as generated content.
func placeholderContent(sectionType string) map[string]any {
	switch sectionType {
	case "hero":
		return map[string]any{
			"headline":    "Welcome",
			"subheadline": "This section is awaiting generated content.",
			"cta_text":    "Learn more",
		}
	case "faq":
		return map[string]any{
			"items": []any{
				map[string]any{
					"question": "What is this section?",
					"answer":   "Placeholder content shown until generation succeeds.",
				},
			},
		}
	case "feature_list":
		return map[string]any{
			"features": []any{
				map[string]any{
					"title":       "Feature",
					"description": "Placeholder feature description.",
				},
			},
		}
	case "testimonial":
		return map[string]any{
			"quote":       "Placeholder testimonial.",
			"attribution": "Anonymous",
		}
	default:
		return map[string]any{
			"text": "Placeholder content. Regenerate this section to replace it.",
		}
	}
}

// placeholderBlocks is the task-draft equivalent of placeholderContent.
func placeholderBlocks(title string) []map[string]any {
	return []map[string]any{
		{
			"type": "rich_text",
			"content": map[string]any{
				"text": "Placeholder draft for \"" + title + "\". Regenerate to replace it.",
			},
		},
	}
}
