package batch

import "fmt"

const researchSystemPrompt = "You are a meticulous travel content researcher. " +
	"Respond with a single JSON object and nothing else. " +
	"Every factual claim must be plausible for the location; omit fields you cannot fill."

// buildUserPrompt produces one research request per logical unit. The
// custom_id carries the unit back through the batch results so imports can
// tag each item.
func buildUserPrompt(collectionType, unit string) string {
	return fmt.Sprintf(
		"Research %s for %q. Return a JSON object with a %q key holding an array of entries, "+
			"each entry an object with name, description, and any type-specific fields.",
		collectionType, unit, collectionType)
}
