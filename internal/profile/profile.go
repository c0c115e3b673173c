package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
	LevelExpert       = "expert"
)

var errEmptyProfile = errors.New("profile has no skills")

// Config is the static description of the candidate.
type Config struct {
	CVFile    string            `mapstructure:"cv-file"`
	Skills    map[string]string `mapstructure:"skills"`
	Projects  []string          `mapstructure:"projects"`
	Learnable []string          `mapstructure:"learnable"`
}

// Profile is the candidate's skill inventory. It is read only once loaded and
// safe for concurrent use.
type Profile struct {
	skills    map[string]string
	projects  []string
	learnable map[string]struct{}
}

// Extractor turns free text into a list of skill names.
type Extractor func(text string) []string

// Options tunes Load.
type Options struct {
	// Extract is used to pull skills out of the CV text. CV loading is skipped when nil.
	Extract Extractor
	// ReadCV replaces the PDF reader, mostly for tests.
	ReadCV func(path string) (string, error)
}

// New builds a profile from in-memory data. Skill names are canonicalized to
// lower case without surrounding whitespace; empty levels become intermediate.
func New(skills map[string]string, projects, learnable []string) *Profile {
	p := &Profile{
		skills:    make(map[string]string, len(skills)),
		learnable: make(map[string]struct{}, len(learnable)),
	}

	for name, level := range skills {
		p.add(name, level)
	}

	for _, project := range projects {
		if project = strings.TrimSpace(project); project != "" {
			p.projects = append(p.projects, project)
		}
	}

	for _, skill := range learnable {
		if key := Canonical(skill); key != "" {
			p.learnable[key] = struct{}{}
		}
	}

	return p
}

// Load builds the profile from configuration, merging skills found in the CV
// when one is configured. A CV that cannot be read is logged and ignored as
// long as the configuration itself lists skills.
func Load(cfg *Config, opts Options, logger *zap.Logger) (*Profile, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := New(cfg.Skills, cfg.Projects, cfg.Learnable)

	cvFile := strings.TrimSpace(cfg.CVFile)
	if cvFile != "" && opts.Extract != nil {
		read := opts.ReadCV
		if read == nil {
			read = ReadPDF
		}

		text, err := read(cvFile)
		if err != nil {
			if p.Len() == 0 {
				return nil, fmt.Errorf("reading cv %q: %w", cvFile, err)
			}
			logger.Warn("skipping cv", zap.String("file", cvFile), zap.Error(err))
		} else {
			before := p.Len()
			for _, skill := range opts.Extract(text) {
				if !p.Has(skill) {
					p.add(skill, LevelIntermediate)
				}
			}
			logger.Info("merged skills from cv",
				zap.String("file", cvFile),
				zap.Int("added", p.Len()-before),
			)
		}
	}

	if p.Len() == 0 {
		return nil, errEmptyProfile
	}

	logger.Info("profile loaded",
		zap.Int("skills", p.Len()),
		zap.Int("projects", len(p.projects)),
		zap.Int("learnable", len(p.learnable)),
	)

	return p, nil
}

// Canonical normalizes a skill name for lookups.
func Canonical(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

func (p *Profile) add(name, level string) {
	key := Canonical(name)
	if key == "" {
		return
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = LevelIntermediate
	}
	p.skills[key] = level
}

func (p *Profile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.skills)
}

// Has reports whether the exact (canonicalized) skill is in the profile.
func (p *Profile) Has(skill string) bool {
	if p == nil {
		return false
	}
	_, ok := p.skills[Canonical(skill)]
	return ok
}

// Level returns the proficiency recorded for the skill.
func (p *Profile) Level(skill string) (string, bool) {
	if p == nil {
		return "", false
	}
	level, ok := p.skills[Canonical(skill)]
	return level, ok
}

// Skills returns the canonical skill names in sorted order.
func (p *Profile) Skills() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.skills))
	for name := range p.skills {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p *Profile) Projects() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.projects...)
}

// Learnable reports whether the skill is marked as quick to pick up.
func (p *Profile) Learnable(skill string) bool {
	if p == nil {
		return false
	}
	_, ok := p.learnable[Canonical(skill)]
	return ok
}
