package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/posting"
	"github.com/spigell/job-intake/internal/utils"
)

const (
	// Threshold is the minimum score that triggers a notification.
	Threshold = 85.0

	defaultAttempts = 3
	defaultBase     = time.Second
	defaultTimeout  = 15 * time.Second
	jitter          = 100 * time.Millisecond
)

// Sender delivers a text message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, recipient, text string) (string, error)
}

// Config tunes the gate.
type Config struct {
	Recipient string
	Attempts  int
	BaseDelay time.Duration
	Timeout   time.Duration
}

// Gate forwards high scoring postings to the notification channel.
type Gate struct {
	sender    Sender
	recipient string
	attempts  int
	base      time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	wait      func(ctx context.Context, d time.Duration) error
}

// New returns a gate. A nil sender or empty recipient disables dispatching.
func New(sender Sender, cfg Config, log *zap.Logger) *Gate {
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Gate{
		sender:    sender,
		recipient: strings.TrimSpace(cfg.Recipient),
		attempts:  cfg.Attempts,
		base:      cfg.BaseDelay,
		timeout:   cfg.Timeout,
		logger:    log,
		wait:      utils.WaitFor,
	}
}

// ShouldAlert reports whether score reaches the alert threshold.
func ShouldAlert(score float64) bool {
	return score >= Threshold
}

// Enabled reports whether the gate can deliver anything.
func (g *Gate) Enabled() bool {
	return g != nil && g.sender != nil && g.recipient != ""
}

// Dispatch notifies about the posting when its score reaches the threshold.
// It returns true only when the message was accepted by the provider. Failed
// deliveries are retried with exponential backoff and then dropped.
func (g *Gate) Dispatch(ctx context.Context, p *posting.Posting, score float64) bool {
	if !ShouldAlert(score) || !g.Enabled() {
		return false
	}

	log := logger.WithPosting(g.logger, p)
	text := FormatMessage(p, score)

	for attempt := 0; attempt < g.attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		id, err := g.sender.Send(callCtx, g.recipient, text)
		cancel()

		if err == nil {
			log.Info("alert sent", zap.String("message_id", id), zap.Float64("score", score))
			return true
		}

		log.Warn("alert delivery failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", g.attempts),
			zap.Error(err),
		)

		if attempt == g.attempts-1 {
			break
		}
		if err := g.wait(ctx, utils.Backoff(g.base, attempt, jitter)); err != nil {
			break
		}
	}

	log.Error("alert dropped", zap.Float64("score", score))
	return false
}

// FormatMessage renders the notification text for a posting.
func FormatMessage(p *posting.Posting, score float64) string {
	return fmt.Sprintf("JOB MATCH: %.0f/100\n\n%s | %s | %s\nApply: %s",
		score, p.Title, p.Company, p.Location, p.URL)
}
