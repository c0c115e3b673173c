package profile

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewCanonicalizesSkills(t *testing.T) {
	p := New(map[string]string{"  Python ": "Expert", "AWS": "", " ": "advanced"}, []string{" Job bot ", ""}, []string{"React"})

	if p.Len() != 2 {
		t.Fatalf("expected 2 skills, got %d", p.Len())
	}
	if !p.Has("PYTHON") || !p.Has(" aws") {
		t.Fatalf("expected case-insensitive lookups to succeed")
	}
	if level, _ := p.Level("python"); level != LevelExpert {
		t.Fatalf("unexpected level: %q", level)
	}
	if level, _ := p.Level("aws"); level != LevelIntermediate {
		t.Fatalf("expected default level, got %q", level)
	}
	if !reflect.DeepEqual(p.Skills(), []string{"aws", "python"}) {
		t.Fatalf("unexpected skills: %v", p.Skills())
	}
	if !reflect.DeepEqual(p.Projects(), []string{"Job bot"}) {
		t.Fatalf("unexpected projects: %v", p.Projects())
	}
	if !p.Learnable("react ") || p.Learnable("go") {
		t.Fatalf("unexpected learnable lookup")
	}
}

func TestLoadMergesCV(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	cfg := &Config{
		CVFile: "cv.pdf",
		Skills: map[string]string{"python": "expert"},
	}
	opts := Options{
		ReadCV: func(path string) (string, error) {
			if path != "cv.pdf" {
				t.Fatalf("unexpected path %q", path)
			}
			return "Python, Docker and Terraform", nil
		},
		Extract: func(text string) []string {
			var out []string
			for _, f := range strings.Fields(text) {
				out = append(out, strings.Trim(f, ","))
			}
			return out
		},
	}

	p, err := Load(cfg, opts, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if level, _ := p.Level("docker"); level != LevelIntermediate {
		t.Fatalf("expected merged skill with default level, got %q", level)
	}
	if level, _ := p.Level("python"); level != LevelExpert {
		t.Fatalf("configured level must win over cv, got %q", level)
	}
	if !p.Has("terraform") {
		t.Fatalf("expected terraform merged from cv")
	}

	if observed.FilterMessage("merged skills from cv").Len() != 1 {
		t.Fatalf("expected merge log entry")
	}
}

func TestLoadCVFailure(t *testing.T) {
	failing := Options{
		ReadCV:  func(string) (string, error) { return "", errors.New("broken pdf") },
		Extract: func(string) []string { return nil },
	}

	p, err := Load(&Config{CVFile: "cv.pdf", Skills: map[string]string{"go": "advanced"}}, failing, zap.NewNop())
	if err != nil {
		t.Fatalf("configured skills should survive a broken cv: %v", err)
	}
	if !p.Has("go") {
		t.Fatalf("expected go skill")
	}

	if _, err := Load(&Config{CVFile: "cv.pdf"}, failing, zap.NewNop()); err == nil {
		t.Fatalf("expected error when cv is the only source and fails")
	}
}

func TestLoadEmpty(t *testing.T) {
	if _, err := Load(nil, Options{}, nil); !errors.Is(err, errEmptyProfile) {
		t.Fatalf("expected empty profile error, got %v", err)
	}
}
