package dedup

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/posting"
	"github.com/spigell/job-intake/internal/utils"
)

// Policy decides what happens to a posting recognized as a duplicate.
type Policy string

const (
	// PolicyAllow stores duplicates but records which posting they repeat.
	PolicyAllow Policy = "allow"
	// PolicyBlock drops duplicates before they reach the store.
	PolicyBlock Policy = "block"

	similarityThreshold = 0.90
)

// ParsePolicy reads a policy name. Empty input selects PolicyAllow.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAllow:
		return PolicyAllow, nil
	case PolicyBlock:
		return PolicyBlock, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q (expected %q or %q)", s, PolicyAllow, PolicyBlock)
	}
}

// Snapshotter lists previously stored postings in insertion order.
// limit <= 0 requests all of them.
type Snapshotter interface {
	ListRecent(ctx context.Context, limit int) ([]*posting.Posting, error)
}

// Verdict is the outcome of comparing a candidate with the store.
type Verdict struct {
	Duplicate bool
	MatchedID string
	// Blocked is set when the policy forbids storing the candidate.
	Blocked bool
}

// Audit renders the verdict for the posting's verification column.
func (v Verdict) Audit() string {
	if !v.Duplicate {
		return posting.VerificationNew
	}
	return "Duplicate of " + v.MatchedID
}

type Detector struct {
	store  Snapshotter
	policy Policy
	logger *zap.Logger
}

func New(store Snapshotter, policy Policy, log *zap.Logger) *Detector {
	if policy == "" {
		policy = PolicyAllow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{store: store, policy: policy, logger: log}
}

func (d *Detector) Policy() Policy {
	return d.policy
}

// Check compares the candidate with every stored posting. Store failures are
// logged and treated as "not a duplicate" so intake keeps going.
func (d *Detector) Check(ctx context.Context, candidate *posting.Posting) Verdict {
	if candidate == nil || !candidate.HasIdentity() {
		return Verdict{}
	}

	existing, err := d.store.ListRecent(ctx, 0)
	if err != nil {
		d.logger.Error("reading stored postings for duplicate check, assuming new",
			append(logger.PostingFields(candidate), zap.Error(err))...,
		)
		return Verdict{}
	}

	matchedID, ok := FindMatch(candidate, existing)
	if !ok {
		return Verdict{}
	}

	verdict := Verdict{Duplicate: true, MatchedID: matchedID, Blocked: d.policy == PolicyBlock}

	fields := append(logger.PostingFields(candidate),
		zap.String("duplicate_of", matchedID),
		zap.String("policy", string(d.policy)),
	)
	if verdict.Blocked {
		d.logger.Info("duplicate posting skipped", fields...)
	} else {
		d.logger.Warn("duplicate posting allowed by policy", fields...)
	}

	return verdict
}

// FindMatch returns the ID of the first stored posting describing the same
// opportunity as candidate. Stored postings without an ID are ignored.
func FindMatch(candidate *posting.Posting, existing []*posting.Posting) (string, bool) {
	title := normalize(candidate.Title)
	company := normalize(candidate.Company)
	if title == "" || company == "" {
		return "", false
	}

	for _, old := range existing {
		if old == nil || strings.TrimSpace(old.ID) == "" {
			continue
		}
		if Same(title, company, normalize(old.Title), normalize(old.Company)) {
			return old.ID, true
		}
	}

	return "", false
}

// Same reports whether two normalized (title, company) pairs name the same
// opportunity: exact equality, or both similarities above the threshold.
func Same(title, company, otherTitle, otherCompany string) bool {
	if title == otherTitle && company == otherCompany {
		return true
	}
	return utils.Similarity(title, otherTitle) > similarityThreshold &&
		utils.Similarity(company, otherCompany) > similarityThreshold
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
