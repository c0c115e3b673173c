package dedup

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-intake/internal/posting"
	"github.com/spigell/job-intake/internal/utils"
)

type fakeStore struct {
	items []*posting.Posting
	err   error
	calls int
	limit int
}

func (f *fakeStore) ListRecent(_ context.Context, limit int) ([]*posting.Posting, error) {
	f.calls++
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		expect  Policy
		wantErr bool
	}{
		{in: "", expect: PolicyAllow},
		{in: " Allow ", expect: PolicyAllow},
		{in: "BLOCK", expect: PolicyBlock},
		{in: "drop", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.expect {
			t.Fatalf("%q: expected %q, got %q (%v)", tt.in, tt.expect, got, err)
		}
	}
}

func TestCheckExactMatch(t *testing.T) {
	store := &fakeStore{items: []*posting.Posting{
		{ID: "OLD1", Title: "Data Engineer", Company: "Beta"},
		{ID: "OLD2", Title: "Python Developer", Company: "Acme GmbH"},
	}}

	d := New(store, PolicyBlock, zap.NewNop())
	verdict := d.Check(context.Background(), &posting.Posting{Title: "  python developer ", Company: "ACME GMBH"})

	if !verdict.Duplicate || verdict.MatchedID != "OLD2" || !verdict.Blocked {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
	if store.limit != 0 {
		t.Fatalf("expected full snapshot request, got limit %d", store.limit)
	}
	if verdict.Audit() != "Duplicate of OLD2" {
		t.Fatalf("unexpected audit: %q", verdict.Audit())
	}
}

func TestCheckSimilarityBoundary(t *testing.T) {
	tests := []struct {
		name      string
		company   string
		other     string
		duplicate bool
	}{
		// one substitution in n equal-length characters gives a ratio of (n-1)/n
		{name: "ten characters is exactly 0.90", company: "abcdefghij", other: "abcdefghiz", duplicate: false},
		{name: "eleven characters is above 0.90", company: "abcdefghijk", other: "abcdefghijz", duplicate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{items: []*posting.Posting{{ID: "OLD", Title: "Backend Engineer", Company: tt.other}}}
			d := New(store, PolicyBlock, zap.NewNop())

			verdict := d.Check(context.Background(), &posting.Posting{Title: "Backend Engineer", Company: tt.company})
			if verdict.Duplicate != tt.duplicate {
				t.Fatalf("expected duplicate=%v, got %+v (similarity %v)", tt.duplicate, verdict, utils.Similarity(tt.company, tt.other))
			}
		})
	}
}

func TestCheckSymmetric(t *testing.T) {
	a := &posting.Posting{ID: "A", Title: "Senior Python Engineer", Company: "Acme Solutions"}
	b := &posting.Posting{ID: "B", Title: "Senior Python Engineers", Company: "Acme Solution"}

	ab := New(&fakeStore{items: []*posting.Posting{b}}, PolicyBlock, nil).Check(context.Background(), a)
	ba := New(&fakeStore{items: []*posting.Posting{a}}, PolicyBlock, nil).Check(context.Background(), b)

	if !ab.Duplicate || !ba.Duplicate {
		t.Fatalf("expected symmetric duplicates, got %+v and %+v", ab, ba)
	}
}

func TestCheckIgnoresRecordsWithoutID(t *testing.T) {
	store := &fakeStore{items: []*posting.Posting{
		{ID: "", Title: "Go Developer", Company: "Acme"},
		{ID: "KEEP", Title: "Go Developer", Company: "Acme"},
	}}

	verdict := New(store, PolicyAllow, nil).Check(context.Background(), &posting.Posting{Title: "Go Developer", Company: "Acme"})
	if verdict.MatchedID != "KEEP" {
		t.Fatalf("expected first record with id to win, got %+v", verdict)
	}
}

func TestCheckAllowPolicyAudits(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	store := &fakeStore{items: []*posting.Posting{{ID: "OLD", Title: "Go Developer", Company: "Acme"}}}

	verdict := New(store, PolicyAllow, zap.New(core)).Check(context.Background(), &posting.Posting{ID: "NEW", Title: "Go Developer", Company: "Acme"})

	if !verdict.Duplicate || verdict.Blocked {
		t.Fatalf("expected allowed duplicate, got %+v", verdict)
	}

	entries := observed.FilterMessage("duplicate posting allowed by policy").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit log, got %d", len(entries))
	}
	if entries[0].ContextMap()["duplicate_of"] != "OLD" {
		t.Fatalf("unexpected log context: %v", entries[0].ContextMap())
	}
}

func TestCheckUndeterminable(t *testing.T) {
	store := &fakeStore{items: []*posting.Posting{{ID: "OLD", Title: "", Company: ""}}}
	d := New(store, PolicyBlock, nil)

	for _, candidate := range []*posting.Posting{
		nil,
		{Title: "", Company: "Acme"},
		{Title: "Go Developer", Company: "  "},
	} {
		if verdict := d.Check(context.Background(), candidate); verdict.Duplicate {
			t.Fatalf("expected non-duplicate for %+v", candidate)
		}
	}

	if store.calls != 0 {
		t.Fatalf("store must not be read for undeterminable candidates")
	}
}

func TestCheckFailsOpen(t *testing.T) {
	core, observed := observer.New(zapcore.ErrorLevel)
	store := &fakeStore{err: errors.New("connection refused")}

	verdict := New(store, PolicyBlock, zap.New(core)).Check(context.Background(), &posting.Posting{Title: "Go Developer", Company: "Acme"})
	if verdict.Duplicate || verdict.Blocked {
		t.Fatalf("expected fail-open verdict, got %+v", verdict)
	}
	if observed.Len() != 1 {
		t.Fatalf("expected error log, got %d entries", observed.Len())
	}
}

func TestIdempotentReingest(t *testing.T) {
	raw := posting.Posting{Title: "Python Developer", Company: "Acme"}

	for _, tt := range []struct {
		policy Policy
		stored int
	}{
		{policy: PolicyBlock, stored: 1},
		{policy: PolicyAllow, stored: 2},
	} {
		store := &fakeStore{}
		d := New(store, tt.policy, nil)

		var verdicts []Verdict
		for i, id := range []string{"FIRST", "SECOND"} {
			p := raw
			p.ID = id
			v := d.Check(context.Background(), &p)
			verdicts = append(verdicts, v)
			if !v.Blocked {
				store.items = append(store.items, &p)
			}
			if i == 1 && (!v.Duplicate || v.MatchedID != "FIRST") {
				t.Fatalf("%s: second ingest must be a duplicate of the first, got %+v", tt.policy, v)
			}
		}

		if len(store.items) != tt.stored {
			t.Fatalf("%s: expected %d stored, got %d", tt.policy, tt.stored, len(store.items))
		}
		if verdicts[0].Duplicate {
			t.Fatalf("%s: first ingest must be new", tt.policy)
		}
	}
}

func TestVerdictAuditNew(t *testing.T) {
	if (Verdict{}).Audit() != posting.VerificationNew {
		t.Fatalf("expected New audit for non-duplicate")
	}
}
