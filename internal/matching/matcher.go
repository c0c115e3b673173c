package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/ai"
	"github.com/spigell/job-intake/internal/posting"
	"github.com/spigell/job-intake/internal/profile"
	"github.com/spigell/job-intake/internal/utils"
)

const (
	TierAdvanced     = "Advanced Match"
	TierIntermediate = "Intermediate Match"
	TierLearning     = "Learning Opportunity"
	TierError        = "Error"
	TierNone         = posting.NotAvailable

	SourcePrimary  = "primary"
	SourceFallback = "fallback"
	SourceNone     = "none"

	similarityThreshold   = 0.75
	defaultExtractTimeout = 30 * time.Second
	maxLogLength          = 200
)

var placeholders = map[string]struct{}{
	"n/a": {}, "na": {}, "none": {}, "null": {}, "nil": {}, "unknown": {},
	"error": {}, "skills": {}, "-": {}, "[]": {}, "{}": {},
}

// Matcher compares job descriptions with the candidate profile.
type Matcher struct {
	extractor ai.TextService
	timeout   time.Duration
	logger    *zap.Logger
}

// New returns a matcher. extractor may be nil, in which case only the
// vocabulary extractor is used.
func New(extractor ai.TextService, timeout time.Duration, logger *zap.Logger) *Matcher {
	if timeout <= 0 {
		timeout = defaultExtractTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{extractor: extractor, timeout: timeout, logger: logger}
}

// Match extracts required skills from text and compares them with the profile.
// It never fails: internal errors produce a zero score with the Error tier.
func (m *Matcher) Match(ctx context.Context, text string, p *profile.Profile) (result posting.MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("skill matching failed", zap.Any("panic", r))
			result = posting.MatchResult{Tier: TierError, Source: SourceNone, Err: fmt.Sprint(r)}
		}
	}()

	if strings.TrimSpace(text) == "" {
		return posting.MatchResult{Tier: TierNone, Source: SourceNone}
	}

	required, source := m.requirements(ctx, text)
	result = Compare(required, p)
	result.Source = source

	m.logger.Debug("skills matched",
		zap.String("source", source),
		zap.Int("required", len(result.Required)),
		zap.Int("matched", len(result.Matched)),
		zap.Float64("percent", result.Percent),
	)

	return result
}

// requirements runs the primary extractor and falls back to the vocabulary scan
// when it is missing, fails or returns nothing useful.
func (m *Matcher) requirements(ctx context.Context, text string) ([]string, string) {
	if m.extractor != nil {
		callCtx, cancel := context.WithTimeout(ctx, m.timeout)
		raw, err := m.extractor.ExtractRequirements(callCtx, text)
		cancel()

		switch {
		case err != nil:
			m.logger.Warn("primary skill extraction failed, using vocabulary", zap.Error(err))
		case degenerate(raw):
			m.logger.Debug("primary skill extraction returned placeholder, using vocabulary",
				zap.String("response_preview", utils.TruncateForLog(raw, maxLogLength)),
			)
		default:
			if skills := ParseRequirements(raw); !degenerateList(skills) {
				return skills, SourcePrimary
			}
			m.logger.Debug("primary skill extraction returned no skills, using vocabulary",
				zap.String("response_preview", utils.TruncateForLog(raw, maxLogLength)),
			)
		}
	}

	return ExtractVocabulary(text), SourceFallback
}

func degenerate(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	if strings.HasPrefix(strings.ToLower(raw), "error:") {
		return true
	}
	_, ok := placeholders[strings.ToLower(strings.Trim(raw, "\"'`. "))]
	return ok
}

func degenerateList(skills []string) bool {
	if len(skills) == 0 {
		return true
	}
	if len(skills) == 1 {
		return degenerate(skills[0])
	}
	return false
}

// Compare splits required skills into matched and missing against the profile.
func Compare(required []string, p *profile.Profile) posting.MatchResult {
	result := posting.MatchResult{
		Required: dedup(required),
		Matched:  []string{},
		Missing:  []string{},
	}

	skills := p.Skills()
	for _, skill := range result.Required {
		if HasSkill(skill, skills) {
			result.Matched = append(result.Matched, skill)
			continue
		}
		result.Missing = append(result.Missing, skill)
		if p.Learnable(skill) {
			result.Learnable = true
		}
	}

	denominator := len(result.Required)
	if denominator == 0 {
		denominator = 1
	}
	result.Percent = float64(len(result.Matched)) / float64(denominator) * 100
	result.Tier = Tier(result.Percent)

	return result
}

// HasSkill reports whether skill matches any of the profile skills.
func HasSkill(skill string, profileSkills []string) bool {
	needle := profile.Canonical(skill)
	if needle == "" {
		return false
	}

	for _, own := range profileSkills {
		own = profile.Canonical(own)
		if own == "" {
			continue
		}
		if needle == own {
			return true
		}
		if len(needle) >= 2 && len(own) >= 2 && (strings.Contains(needle, own) || strings.Contains(own, needle)) {
			return true
		}
		if utils.Similarity(needle, own) > similarityThreshold {
			return true
		}
	}

	return false
}

// Tier maps a match percentage onto the experience tier ladder.
func Tier(percent float64) string {
	switch {
	case percent >= 80:
		return TierAdvanced
	case percent >= 50:
		return TierIntermediate
	default:
		return TierLearning
	}
}

func dedup(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
