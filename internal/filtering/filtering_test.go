package filtering

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-intake/internal/posting"
)

func postings() *posting.Postings {
	return &posting.Postings{Items: []*posting.Posting{
		{Title: "Python Developer", Company: "Acme", URL: "https://a/1", Description: "Great team"},
		{Title: "Unpaid Internship", Company: "Beta", URL: "https://a/2"},
		{Title: "Data Engineer", Company: "Spam Corp", URL: "https://a/3"},
		{Title: "", Company: "Gamma", URL: "https://a/4"},
		{Title: "SRE", Company: "Delta", URL: ""},
		{Title: "Go Engineer", Company: "Epsilon", URL: "https://a/6", Description: "Commission only role"},
	}}
}

func TestRunDefaultFilters(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	cfg := &Config{
		RedFlags:         []string{" unpaid ", "COMMISSION ONLY", ""},
		ExcludeCompanies: []string{"spam corp"},
	}

	f, err := New(cfg, Default(), zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	left, dropped, err := f.Run(context.Background(), postings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dropped != 5 || left.Len() != 1 || left.Items[0].Company != "Acme" {
		t.Fatalf("unexpected result: dropped=%d left=%+v", dropped, left.Items)
	}

	if observed.FilterMessage("filter step").Len() != 3 {
		t.Fatalf("expected a log entry per dropping step, got %d", observed.FilterMessage("filter step").Len())
	}
}

func TestRunWithoutConfig(t *testing.T) {
	f, err := New(nil, Default(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	left, dropped, err := f.Run(context.Background(), postings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 2 || left.Len() != 4 {
		t.Fatalf("expected only identity filter to drop, got dropped=%d left=%d", dropped, left.Len())
	}
}

func TestDisableByName(t *testing.T) {
	steps := Default()
	DisableByName(steps, "red_flags", "flag set")

	f, err := New(&Config{RedFlags: []string{"unpaid"}}, steps, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	left, _, err := f.Run(context.Background(), postings())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left.Len() != 4 {
		t.Fatalf("expected red flags to be skipped, got %d left", left.Len())
	}

	for _, status := range f.Describe() {
		if status.Name == "red_flags" && (status.Enabled || status.Reason != "flag set") {
			t.Fatalf("unexpected status: %+v", status)
		}
	}
}

type failingFilter struct{ validateErr, applyErr error }

func (f *failingFilter) Name() string           { return "failing" }
func (f *failingFilter) Disable(string)         {}
func (f *failingFilter) IsEnabled() bool        { return true }
func (f *failingFilter) Validate(*Config) error { return f.validateErr }
func (f *failingFilter) Apply(_ context.Context, _ Deps, v *posting.Postings) (*posting.Postings, Step, error) {
	return v, Step{}, f.applyErr
}

func TestFilterErrors(t *testing.T) {
	if _, err := New(nil, []Filter{&failingFilter{validateErr: errors.New("bad")}}, nil); err == nil {
		t.Fatalf("expected validation error")
	}

	f, err := New(nil, []Filter{&failingFilter{applyErr: errors.New("boom")}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := f.Run(context.Background(), postings()); err == nil {
		t.Fatalf("expected apply error")
	}
}

func TestContainsRedFlag(t *testing.T) {
	p := &posting.Posting{Title: "Senior Dev", Company: "Acme", Description: "MLM opportunity"}
	if got := ContainsRedFlag(p, []string{"crypto", "mlm"}); got != "mlm" {
		t.Fatalf("expected mlm flag, got %q", got)
	}
	if got := ContainsRedFlag(p, nil); got != "" {
		t.Fatalf("expected no flag, got %q", got)
	}
}
