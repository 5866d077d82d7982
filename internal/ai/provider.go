package ai

import "context"

// Provider generates one piece of content from a prompt pair. The returned
// text is expected to be a JSON object, possibly wrapped in a markdown fence;
// callers parse it with ExtractJSONObject and fall back to placeholder
// content when the call or the parse fails.
type Provider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
