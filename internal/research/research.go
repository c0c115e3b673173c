package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/ai"
	"github.com/spigell/job-intake/internal/posting"
)

const (
	maxFieldRunes  = 100
	defaultTimeout = 30 * time.Second
)

// Researcher produces short notes about the company behind a posting.
type Researcher struct {
	service ai.TextService
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a researcher. Without a service every lookup yields N/A intel.
func New(service ai.TextService, timeout time.Duration, logger *zap.Logger) *Researcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{service: service, timeout: timeout, logger: logger}
}

// Research never fails. Missing input or service errors give N/A fields.
func (r *Researcher) Research(ctx context.Context, p *posting.Posting) posting.CompanyIntel {
	if r.service == nil || p == nil || strings.TrimSpace(p.Description) == "" {
		return posting.EmptyIntel()
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.service.Summarize(callCtx, fmt.Sprintf("Company: %s\n\n%s", p.Company, p.Description))
	if err != nil {
		r.logger.Warn("company research failed", zap.String("company", p.Company), zap.Error(err))
		return posting.EmptyIntel()
	}

	return Parse(raw)
}

// Parse reads "Mission:", "Values:", "Culture:" and "Tech:" lines from a reply.
func Parse(raw string) posting.CompanyIntel {
	intel := posting.EmptyIntel()

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		value = field(value)
		if value == "" {
			continue
		}

		switch strings.ToLower(strings.Trim(strings.TrimSpace(key), "*")) {
		case "mission":
			intel.Mission = value
		case "values":
			intel.Values = value
		case "culture":
			intel.Culture = value
		case "tech", "tech stack":
			intel.Tech = value
		}
	}

	return intel
}

func field(value string) string {
	value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*"))
	runes := []rune(value)
	if len(runes) > maxFieldRunes {
		value = strings.TrimSpace(string(runes[:maxFieldRunes]))
	}
	return value
}
