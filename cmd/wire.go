package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/ai"
	"github.com/spigell/job-intake/internal/ai/gemini"
	"github.com/spigell/job-intake/internal/alert"
	"github.com/spigell/job-intake/internal/command"
	"github.com/spigell/job-intake/internal/dedup"
	"github.com/spigell/job-intake/internal/filtering"
	"github.com/spigell/job-intake/internal/matching"
	"github.com/spigell/job-intake/internal/pipeline"
	"github.com/spigell/job-intake/internal/profile"
	"github.com/spigell/job-intake/internal/redisbus"
	"github.com/spigell/job-intake/internal/research"
	"github.com/spigell/job-intake/internal/scraper"
	"github.com/spigell/job-intake/internal/secrets"
	"github.com/spigell/job-intake/internal/store"
	"github.com/spigell/job-intake/internal/whatsapp"
)

// components is everything a command needs to run batches.
type components struct {
	orchestrator *pipeline.Orchestrator
	store        store.Store
	filters      *filtering.Filtering
	sender       alert.Sender
	bus          *redisbus.Bus
	stop         *pipeline.StopFlag
	logger       *zap.Logger
}

type buildOptions struct {
	dryRun bool
}

// buildComponents wires the batch collaborators. Optional integrations (AI,
// alerts, redis) degrade to disabled with a warning when not configured.
func buildComponents(ctx context.Context, config *Config, opts buildOptions, logger *zap.Logger) (*components, error) {
	c := &components{stop: &pipeline.StopFlag{}, logger: logger}

	textService := newTextService(ctx, config.AI, logger)

	prof, err := profile.Load(config.Profile, profile.Options{Extract: matching.ExtractVocabulary}, logger)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w (set profile.skills or profile.cv-file)", err)
	}

	sources, err := newSources(config.Sources, logger)
	if err != nil {
		return nil, err
	}

	c.filters, err = filtering.New(config.Filters, filtering.Default(), logger)
	if err != nil {
		return nil, fmt.Errorf("preparing filters: %w", err)
	}

	policy, err := dedup.ParsePolicy(config.Dedup.Policy)
	if err != nil {
		return nil, err
	}

	if opts.dryRun {
		logger.Info("dry run, postings are kept in memory only")
		c.store = store.NewMemory()
	} else {
		c.store, err = store.Open(ctx, config.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}

	c.sender = newSender(config.Alert, logger)
	gate := alert.New(c.sender, alert.Config{
		Recipient: config.Alert.Recipient,
		Timeout:   config.Batch.DispatchTimeout,
	}, logger)

	c.bus = connectBus(ctx, config.Redis, logger)

	deps := pipeline.Deps{
		Scraper:    scraper.NewMulti(sources, config.Batch.ScrapeTimeout, logger),
		Filters:    c.filters,
		Deduper:    dedup.New(c.store, policy, logger),
		Matcher:    matching.New(textService, config.Batch.ExtractTimeout, logger),
		Researcher: research.New(textService, config.Batch.ExtractTimeout, logger),
		Store:      c.store,
		Profile:    prof,
		Stopper:    c.stop,
		Logger:     logger,
	}
	if gate.Enabled() {
		deps.Alerter = gate
	} else {
		logger.Warn("alerts disabled", zap.String("hint", "set alert.recipient, alert.whatsapp.phone-id and WHATSAPP_TOKEN_FILE"))
	}
	if c.bus != nil {
		deps.Stopper = pipeline.AnyOf(c.stop, c.bus)
		deps.Publisher = c.bus
	}

	c.orchestrator, err = pipeline.New(pipeline.Config{
		Target:         config.Batch.Target,
		Queries:        config.Queries,
		PageLimit:      config.Batch.PageLimit,
		MaxCycles:      config.Batch.MaxCycles,
		CycleDelay:     config.Batch.CycleDelay,
		PersistTimeout: config.Batch.PersistTimeout,
	}, deps)
	if err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// requestStop stops the local run and, when redis is connected, runs in other processes.
func (c *components) requestStop(ctx context.Context) error {
	c.stop.Request()
	if c.bus == nil {
		return nil
	}
	return c.bus.RequestStop(ctx)
}

func (c *components) Close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("closing store", zap.Error(err))
		}
	}
	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			c.logger.Warn("closing redis", zap.Error(err))
		}
	}
}

func commandParser(cfg *CommandConfig) command.Parser {
	return command.Parser{
		Locations:       cfg.Locations,
		DefaultLocation: cfg.DefaultLocation,
		MaxCount:        cfg.MaxCount,
	}
}

// newTextService returns nil when AI is disabled or cannot be initialized;
// matching then relies on the keyword vocabulary.
func newTextService(ctx context.Context, cfg *AIConfig, logger *zap.Logger) ai.TextService {
	if !cfg.Enabled {
		logger.Info("ai disabled, using keyword vocabulary for skills")
		return nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		logger.Warn("skipping AI skill extraction", zap.Error(err),
			zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY_FILE"),
		)
		return nil
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		logger.Warn("skipping AI skill extraction", zap.Error(err))
		return nil
	}

	return gemini.NewService(generator, cfg.Gemini.MaxLogLength, logger)
}

func newSources(cfg *SourcesConfig, logger *zap.Logger) ([]scraper.Source, error) {
	var sources []scraper.Source

	if strings.TrimSpace(cfg.Adzuna.AppID) != "" {
		key, err := secrets.Load(secrets.Source{
			Name:  "adzuna app key",
			Value: cfg.Adzuna.AppKey,
			File:  cfg.Adzuna.AppKeyFile,
			Env:   "ADZUNA_APP_KEY",
		})
		if err != nil {
			logger.Warn("skipping adzuna source", zap.Error(err),
				zap.String("hint", "set sources.adzuna.app-key-file or ADZUNA_APP_KEY_FILE"),
			)
		} else {
			adzunaCfg := cfg.Adzuna
			adzunaCfg.AppKey = key
			adzuna, err := scraper.NewAdzuna(adzunaCfg, logger)
			if err != nil {
				logger.Warn("skipping adzuna source", zap.Error(err))
			} else {
				sources = append(sources, adzuna)
			}
		}
	}

	if cfg.Arbeitnow.Enabled {
		sources = append(sources, scraper.NewArbeitnow(cfg.Arbeitnow, logger))
	}

	if len(sources) == 0 {
		return nil, errors.New("no job sources configured (enable sources.arbeitnow or set sources.adzuna.app-id)")
	}

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	logger.Info("job sources", zap.Strings("sources", names))

	return sources, nil
}

// newSender returns nil when WhatsApp credentials are missing.
func newSender(cfg *AlertConfig, logger *zap.Logger) alert.Sender {
	token, ok, err := secrets.Optional(secrets.Source{
		Name:  "whatsapp token",
		Value: cfg.WhatsApp.Token,
		File:  cfg.WhatsApp.TokenFile,
		Env:   "WHATSAPP_TOKEN",
	})
	if err != nil {
		logger.Warn("skipping whatsapp", zap.Error(err))
		return nil
	}
	if !ok || strings.TrimSpace(cfg.WhatsApp.PhoneID) == "" {
		return nil
	}

	client, err := whatsapp.New(logger, token, cfg.WhatsApp.PhoneID, cfg.WhatsApp.APIVersion)
	if err != nil {
		logger.Warn("skipping whatsapp", zap.Error(err))
		return nil
	}
	return client
}

// connectBus returns nil when redis is not configured or unreachable.
func connectBus(ctx context.Context, cfg redisbus.Config, logger *zap.Logger) *redisbus.Bus {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}

	bus, err := redisbus.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without remote stop and events", zap.Error(err))
		return nil
	}
	return bus
}
