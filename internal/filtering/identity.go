package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/posting"
)

type missingIdentityFilter struct{}

// NewMissingIdentity creates a filter that removes postings without a title or link.
func NewMissingIdentity() Filter {
	return &missingIdentityFilter{}
}

func (f *missingIdentityFilter) Name() string { return "missing_identity" }

func (f *missingIdentityFilter) Disable(string) {}

func (f *missingIdentityFilter) IsEnabled() bool { return true }

func (f *missingIdentityFilter) Validate(*Config) error { return nil }

func (f *missingIdentityFilter) Apply(_ context.Context, deps Deps, v *posting.Postings) (*posting.Postings, Step, error) {
	initial := v.Len()
	dropped := v.Filter(func(p *posting.Posting) bool {
		return strings.TrimSpace(p.Title) != "" && strings.TrimSpace(p.URL) != ""
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding postings without title or url",
			zap.Int("dropped", len(dropped)),
			zap.Int("postings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(dropped), Left: v.Len()}, nil
}
