package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-intake/internal/posting"
)

var fixedNow = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestAdzunaSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/de/search/2" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("app_id") != "id" || q.Get("app_key") != "key" || q.Get("what") != "python developer" || q.Get("results_per_page") != "10" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results": [
			{"title": "Python Developer (Remote)", "company": {"display_name": "Acme"}, "location": {"display_name": "Berlin"},
			 "redirect_url": "https://adzuna.example/1", "salary_min": 60000, "salary_max": "80000",
			 "description": "<p>Python &amp; <b>AWS</b></p>", "created": "2026-04-30T10:00:00Z"}
		]}`))
	}))
	defer server.Close()

	a, err := NewAdzuna(AdzunaConfig{AppID: "id", AppKey: "key"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.APIURL = server.URL
	a.now = fixedNow

	items, err := a.Search(context.Background(), "python developer", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(items))
	}

	p := items[0]
	if p.Company != "Acme" || p.Location != "Berlin" || p.Portal != "Adzuna" {
		t.Fatalf("unexpected posting: %+v", p)
	}
	if p.Description != "Python & AWS" {
		t.Fatalf("unexpected description: %q", p.Description)
	}
	if p.SalaryRange != "€60000-€80000" {
		t.Fatalf("unexpected salary: %q", p.SalaryRange)
	}
	if p.RemoteType != "Remote" || p.DatePosted != "2026-04-30" || !p.FirstSeen.Equal(fixedNow()) {
		t.Fatalf("unexpected metadata: %+v", p)
	}
}

func TestNewAdzunaRequiresCredentials(t *testing.T) {
	if _, err := NewAdzuna(AdzunaConfig{AppID: "id"}, nil); err == nil {
		t.Fatalf("expected error without app key")
	}
}

func TestArbeitnowSearch(t *testing.T) {
	long := strings.Repeat("a", 600)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("search") != "go" || q.Get("page") != "1" || q.Get("country") != "de" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data": [
			{"title": "Go Engineer", "company_name": "Beta", "location": "Munich", "remote": true,
			 "url": "https://arbeitnow.example/1", "description": "` + long + `", "tags": ["go"], "created_at": 1777500000},
			{"title": "SRE", "company_name": "Gamma", "location": "Berlin", "remote": false, "url": "https://arbeitnow.example/2"}
		]}`))
	}))
	defer server.Close()

	a := NewArbeitnow(ArbeitnowConfig{Enabled: true, Limit: 1}, zap.NewNop())
	a.APIURL = server.URL
	a.now = fixedNow

	items, err := a.Search(context.Background(), "go", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(items))
	}
	p := items[0]
	if p.RemoteType != "Remote" || p.Company != "Beta" {
		t.Fatalf("unexpected posting: %+v", p)
	}
	if len([]rune(p.Description)) != maxDescriptionRunes {
		t.Fatalf("expected description capped at %d, got %d", maxDescriptionRunes, len(p.Description))
	}
	if p.DatePosted == "" {
		t.Fatalf("expected date posted")
	}
}

func TestSourceBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := NewArbeitnow(ArbeitnowConfig{}, nil)
	a.APIURL = server.URL

	if _, err := a.Search(context.Background(), "go", 1); err == nil || !strings.Contains(err.Error(), "bad status") {
		t.Fatalf("expected bad status error, got %v", err)
	}
}

type stubSource struct {
	name  string
	items []*posting.Posting
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(context.Context, string, int) ([]*posting.Posting, error) {
	return s.items, s.err
}

func TestMultiSkipsFailingSources(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)

	m := NewMulti([]Source{
		&stubSource{name: "a", items: []*posting.Posting{{Title: "one"}}},
		&stubSource{name: "broken", err: errors.New("dns failure")},
		&stubSource{name: "b", items: []*posting.Posting{{Title: "two"}, {Title: "three"}}},
	}, time.Second, zap.New(core))

	items := m.Fetch(context.Background(), "python", 1)
	if len(items) != 3 || items[0].Title != "one" || items[2].Title != "three" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if observed.FilterMessage("source failed").Len() != 1 {
		t.Fatalf("expected failing source to be logged")
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in     string
		expect string
	}{
		{in: "plain   text\n", expect: "plain text"},
		{in: "<div><p>Hello</p><p>World</p></div>", expect: "Hello World"},
		{in: "a<br>b<script>alert(1)</script> c", expect: "a b c"},
		{in: "Tom &amp; Jerry", expect: "Tom & Jerry"},
	}

	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.expect {
			t.Fatalf("%q: expected %q, got %q", tt.in, tt.expect, got)
		}
	}
}

func TestBuildParams(t *testing.T) {
	q := buildParams(&arbeitnowParams{Search: "go", Page: 0})
	if q.Get("search") != "go" || q.Has("page") || q.Has("country") {
		t.Fatalf("unexpected params: %v", q)
	}
}

func TestSalaryRange(t *testing.T) {
	tests := []struct {
		from, to float64
		expect   string
	}{
		{0, 0, ""},
		{50000, 0, "€50000"},
		{0, 70000, "€70000"},
		{50000, 70000, "€50000-€70000"},
	}
	for _, tt := range tests {
		if got := salaryRange(tt.from, tt.to); got != tt.expect {
			t.Fatalf("%v-%v: expected %q, got %q", tt.from, tt.to, tt.expect, got)
		}
	}
}
