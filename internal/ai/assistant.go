package ai

import (
	"context"
)

// TextService is the text model used by the pipeline. Both calls return the raw
// model reply; callers own parsing and fallbacks.
type TextService interface {
	// ExtractRequirements lists the skills a job description asks for.
	ExtractRequirements(ctx context.Context, description string) (string, error)
	// Summarize produces short research notes about the entity described by text.
	Summarize(ctx context.Context, text string) (string, error)
}
