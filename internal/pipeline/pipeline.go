package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-intake/internal/alert"
	"github.com/spigell/job-intake/internal/command"
	"github.com/spigell/job-intake/internal/dedup"
	"github.com/spigell/job-intake/internal/filtering"
	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/posting"
	"github.com/spigell/job-intake/internal/profile"
	"github.com/spigell/job-intake/internal/scraper"
	"github.com/spigell/job-intake/internal/utils"
)

const (
	defaultTarget         = 10
	defaultPageLimit      = 3
	defaultMaxCycles      = 30
	defaultCycleDelay     = 2 * time.Second
	defaultPersistTimeout = 10 * time.Second

	idLength     = 8
	maxIDRedraws = 10
)

var defaultQueries = []string{
	"python developer",
	"backend engineer",
	"python engineer",
	"data engineer python",
	"devops engineer aws",
	"mlops engineer",
	"data engineer aws",
}

type Deduper interface {
	Check(ctx context.Context, candidate *posting.Posting) dedup.Verdict
}

type SkillMatcher interface {
	Match(ctx context.Context, text string, p *profile.Profile) posting.MatchResult
}

type Researcher interface {
	Research(ctx context.Context, p *posting.Posting) posting.CompanyIntel
}

type Alerter interface {
	Dispatch(ctx context.Context, p *posting.Posting, score float64) bool
}

// Appender is the part of the job store the orchestrator writes to.
type Appender interface {
	Append(ctx context.Context, p *posting.Posting) error
	ListRecent(ctx context.Context, limit int) ([]*posting.Posting, error)
}

// Publisher announces stored postings to other processes.
type Publisher interface {
	Publish(ctx context.Context, p *posting.Posting) error
}

// Config holds the batch defaults.
type Config struct {
	Target         int           `mapstructure:"target"`
	Queries        []string      `mapstructure:"queries"`
	PageLimit      int           `mapstructure:"page-limit"`
	MaxCycles      int           `mapstructure:"max-cycles"`
	CycleDelay     time.Duration `mapstructure:"cycle-delay"`
	PersistTimeout time.Duration `mapstructure:"persist-timeout"`
}

// Deps wires the collaborators. Filters, Researcher, Alerter, Stopper and
// Publisher are optional.
type Deps struct {
	Scraper    scraper.Scraper
	Filters    *filtering.Filtering
	Deduper    Deduper
	Matcher    SkillMatcher
	Researcher Researcher
	Alerter    Alerter
	Store      Appender
	Profile    *profile.Profile
	Stopper    Stopper
	Publisher  Publisher
	Logger     *zap.Logger
}

// RunOptions bound a single run. Zero fields take the configured defaults.
type RunOptions struct {
	Target    int
	Queries   []string
	PageLimit int
	MaxCycles int
}

// Summary reports what a run did.
type Summary struct {
	Target    int  `json:"target"`
	Stored    int  `json:"stored"`
	Attempted int  `json:"attempted"`
	Skipped   int  `json:"skipped"`
	Filtered  int  `json:"filtered"`
	Failed    int  `json:"failed"`
	Alerted   int  `json:"alerted"`
	Cycles    int  `json:"cycles"`
	Shortfall int  `json:"shortfall"`
	Stopped   bool `json:"stopped"`

	Postings []*posting.Posting `json:"-"`
}

// Orchestrator drives scraping, scoring, dedup, alerting and persistence.
// Concurrent runs are serialized.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	logger  *zap.Logger
	state   atomic.Int32
	running sync.Mutex
	wait    func(ctx context.Context, d time.Duration) error
	newID   func() string
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Scraper == nil || deps.Deduper == nil || deps.Matcher == nil || deps.Store == nil {
		return nil, errors.New("scraper, deduper, matcher and store are required")
	}

	if cfg.Target <= 0 {
		cfg.Target = defaultTarget
	}
	if len(cfg.Queries) == 0 {
		cfg.Queries = defaultQueries
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = defaultMaxCycles
	}
	if cfg.CycleDelay < 0 {
		cfg.CycleDelay = 0
	} else if cfg.CycleDelay == 0 {
		cfg.CycleDelay = defaultCycleDelay
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
		wait:   utils.WaitFor,
		newID:  shortID,
	}, nil
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) transition(next State) {
	prev := State(o.state.Swap(int32(next)))
	if prev != next {
		o.logger.Debug("state transition", zap.Stringer("from", prev), zap.Stringer("to", next))
	}
}

// RunCommand performs one bounded pass over the queries seeded by cmd.
func (o *Orchestrator) RunCommand(ctx context.Context, cmd command.Command) Summary {
	queries := cmd.Queries()
	return o.Run(ctx, RunOptions{
		Target:    cmd.Count,
		Queries:   queries,
		PageLimit: o.cfg.PageLimit,
		MaxCycles: len(queries) * o.cfg.PageLimit,
	})
}

// Run collects postings until Target of them are stored, the cycle ceiling is
// reached or a stop is requested. Failures of single postings never end the run.
// A stop request is cleared when the run ends.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) Summary {
	o.running.Lock()
	defer o.running.Unlock()
	defer o.clearStop()

	o.transition(StateScraping)

	opts = o.withDefaults(opts)
	summary := Summary{Target: opts.Target}

	o.logger.Info("starting batch",
		zap.Int("target", opts.Target),
		zap.Strings("queries", opts.Queries),
		zap.Int("page_limit", opts.PageLimit),
		zap.Int("max_cycles", opts.MaxCycles),
	)

	ids := o.knownIDs(ctx)

	queryIdx, page := 0, 1
	for summary.Stored < opts.Target && summary.Cycles < opts.MaxCycles {
		if ctx.Err() != nil || (o.deps.Stopper != nil && o.deps.Stopper.StopRequested(ctx)) {
			summary.Stopped = true
			o.logger.Info("stop requested, ending batch", zap.Int("cycles", summary.Cycles))
			break
		}

		if summary.Cycles > 0 {
			if err := o.wait(ctx, o.cfg.CycleDelay); err != nil {
				summary.Stopped = true
				break
			}
		}

		summary.Cycles++
		query := opts.Queries[queryIdx]
		o.cycle(ctx, query, page, opts.Target, ids, &summary)

		page++
		if page > opts.PageLimit {
			page = 1
			queryIdx = (queryIdx + 1) % len(opts.Queries)
		}
	}

	o.transition(StateDone)

	if summary.Stored < opts.Target {
		summary.Shortfall = opts.Target - summary.Stored
	}

	fields := []zap.Field{
		zap.Int("target", summary.Target),
		zap.Int("stored", summary.Stored),
		zap.Int("attempted", summary.Attempted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("filtered", summary.Filtered),
		zap.Int("failed", summary.Failed),
		zap.Int("alerted", summary.Alerted),
		zap.Int("cycles", summary.Cycles),
	}
	if summary.Shortfall > 0 && !summary.Stopped {
		o.logger.Warn("batch reached cycle ceiling before target", append(fields, zap.Int("shortfall", summary.Shortfall))...)
	} else {
		o.logger.Info("batch finished", append(fields, zap.Bool("stopped", summary.Stopped))...)
	}

	return summary
}

func (o *Orchestrator) clearStop() {
	if r, ok := o.deps.Stopper.(resetter); ok {
		r.Reset()
	}
}

func (o *Orchestrator) withDefaults(opts RunOptions) RunOptions {
	if opts.Target <= 0 {
		opts.Target = o.cfg.Target
	}
	if len(opts.Queries) == 0 {
		opts.Queries = o.cfg.Queries
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = o.cfg.PageLimit
	}
	if opts.MaxCycles <= 0 {
		opts.MaxCycles = o.cfg.MaxCycles
	}
	return opts
}

func (o *Orchestrator) knownIDs(ctx context.Context) map[string]struct{} {
	ids := make(map[string]struct{})

	existing, err := o.deps.Store.ListRecent(ctx, 0)
	if err != nil {
		o.logger.Warn("reading stored ids failed, collisions are caught by the store", zap.Error(err))
		return ids
	}

	for _, p := range existing {
		if p.ID != "" {
			ids[p.ID] = struct{}{}
		}
	}
	return ids
}

func (o *Orchestrator) cycle(ctx context.Context, query string, page, target int, ids map[string]struct{}, summary *Summary) {
	o.transition(StateScraping)
	log := o.logger.With(zap.String("query", query), zap.Int("page", page), zap.Int("cycle", summary.Cycles))

	batch := &posting.Postings{Items: o.deps.Scraper.Fetch(ctx, query, page)}
	log.Info("scraped postings", zap.Int("count", batch.Len()))

	if o.deps.Filters != nil && batch.Len() > 0 {
		next, dropped, err := o.deps.Filters.Run(ctx, batch)
		if err != nil {
			log.Error("filtering failed, keeping unfiltered postings", zap.Error(err))
		} else {
			batch = next
			summary.Filtered += dropped
		}
	}

	for _, p := range batch.Items {
		if summary.Stored >= target {
			return
		}
		o.process(ctx, p, ids, summary)
	}
}

// process takes one posting through dedup, enrichment, alerting and storage.
func (o *Orchestrator) process(ctx context.Context, p *posting.Posting, ids map[string]struct{}, summary *Summary) {
	summary.Attempted++

	p.ID = o.uniqueID(ids)
	if p.FirstSeen.IsZero() {
		p.FirstSeen = time.Now().UTC()
	}
	log := logger.WithPosting(o.logger, p)

	verdict := o.deps.Deduper.Check(ctx, p)
	if verdict.Blocked {
		summary.Skipped++
		return
	}
	p.Verification = verdict.Audit()

	o.transition(StateScoring)
	o.enrich(ctx, p)

	if alert.ShouldAlert(p.Score) && o.deps.Alerter != nil {
		p.AlertStatus = posting.AlertFailed
		if o.deps.Alerter.Dispatch(ctx, p, p.Score) {
			p.AlertStatus = posting.AlertSent
			summary.Alerted++
		}
		p.Tags = append(p.Tags, "alert:"+strings.ToLower(p.AlertStatus))
	} else {
		p.AlertStatus = posting.AlertSkipped
	}

	o.transition(StatePersisting)
	persistCtx, cancel := context.WithTimeout(ctx, o.cfg.PersistTimeout)
	err := o.deps.Store.Append(persistCtx, p)
	cancel()
	if err != nil {
		summary.Failed++
		log.Error("storing posting failed", zap.Error(err))
		return
	}

	ids[p.ID] = struct{}{}
	summary.Stored++
	summary.Postings = append(summary.Postings, p)

	log.Info("posting stored",
		zap.Float64("score", p.Score),
		zap.String("priority", p.Priority),
		zap.String("verification", p.Verification),
		zap.Int("stored", summary.Stored),
		zap.Int("target", summary.Target),
	)

	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.Publish(ctx, p); err != nil {
			log.Warn("publishing stored posting failed", zap.Error(err))
		}
	}
}

// enrich runs skill matching and company research side by side and waits for both.
func (o *Orchestrator) enrich(ctx context.Context, p *posting.Posting) {
	var (
		match posting.MatchResult
		intel = posting.EmptyIntel()
	)

	// Match and Research degrade instead of failing, so the group only joins.
	var g errgroup.Group
	g.Go(func() error {
		match = o.deps.Matcher.Match(ctx, p.Description, o.deps.Profile)
		return nil
	})
	if o.deps.Researcher != nil {
		g.Go(func() error {
			intel = o.deps.Researcher.Research(ctx, p)
			return nil
		})
	}
	g.Wait()

	p.Match = &match
	p.Intel = intel
	p.Score = match.Percent
	p.Priority = posting.PriorityFor(p.Score)
}

func (o *Orchestrator) uniqueID(ids map[string]struct{}) string {
	for i := 0; i < maxIDRedraws; i++ {
		id := o.newID()
		if _, taken := ids[id]; !taken {
			return id
		}
		o.logger.Debug("posting id collision, drawing again", zap.String("job_id", id))
	}
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func shortID() string {
	return strings.ToUpper(uuid.NewString()[:idLength])
}
