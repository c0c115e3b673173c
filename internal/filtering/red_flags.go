package filtering

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/posting"
)

type redFlagsFilter struct {
	flags   []string
	enabled bool
	reason  string
}

// NewRedFlags creates a filter that drops postings mentioning any configured red flag term.
func NewRedFlags() Filter {
	return &redFlagsFilter{enabled: true}
}

func (f *redFlagsFilter) Name() string { return "red_flags" }

func (f *redFlagsFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *redFlagsFilter) IsEnabled() bool { return f.enabled }

func (f *redFlagsFilter) Validate(cfg *Config) error {
	f.flags = nil
	for _, flag := range cfg.RedFlags {
		if flag = strings.ToLower(strings.TrimSpace(flag)); flag != "" {
			f.flags = append(f.flags, flag)
		}
	}
	return nil
}

func (f *redFlagsFilter) Apply(_ context.Context, deps Deps, v *posting.Postings) (*posting.Postings, Step, error) {
	initial := v.Len()
	if len(f.flags) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	dropped := v.Filter(func(p *posting.Posting) bool {
		return ContainsRedFlag(p, f.flags) == ""
	})

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding postings by red flags",
			zap.Strings("red_flags", f.flags),
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(dropped), Left: v.Len()}, nil
}

func (f *redFlagsFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{"terms": strconv.Itoa(len(f.flags))},
	}
}

// ContainsRedFlag returns the first flag found (case-insensitive) in the
// posting's title, company or description, or "" when there is none.
func ContainsRedFlag(p *posting.Posting, flags []string) string {
	combined := strings.ToLower(p.Title + " " + p.Company + " " + p.Description)
	for _, flag := range flags {
		if flag == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(flag)) {
			return flag
		}
	}
	return ""
}
