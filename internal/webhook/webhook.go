// Package webhook receives chat commands and turns them into batch runs.
package webhook

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/alert"
	"github.com/spigell/job-intake/internal/command"
	"github.com/spigell/job-intake/internal/pipeline"
	"github.com/spigell/job-intake/internal/utils"
)

const (
	PathWebhook = "/webhook/whatsapp"
	PathHealth  = "/health"

	defaultListen = ":5000"
	replyTimeout  = 15 * time.Second
	maxLogLength  = 200

	busyReply = "A batch is already running, try again when it finishes."
)

// Config holds the HTTP listener settings.
type Config struct {
	Listen      string `mapstructure:"listen"`
	VerifyToken string `mapstructure:"verify-token"`
}

// Runner executes one command-driven batch.
type Runner interface {
	RunCommand(ctx context.Context, cmd command.Command) pipeline.Summary
	State() pipeline.State
}

// Deps wires the server. Replier and Recipient are optional; without a
// recipient replies go to the message sender.
type Deps struct {
	Runner    Runner
	Parser    command.Parser
	Replier   alert.Sender
	Recipient string
	Logger    *zap.Logger
}

type payload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []message `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type message struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Server serves the verification handshake, inbound messages and health.
// At most one batch runs at a time.
type Server struct {
	app    *fiber.App
	cfg    Config
	deps   Deps
	logger *zap.Logger

	busy    sync.Mutex
	runs    sync.WaitGroup
	baseCtx context.Context
}

func New(cfg Config, deps Deps) *Server {
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger,
		baseCtx: context.Background(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "job-intake",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.app.Use(recover.New())

	s.app.Get(PathWebhook, s.verify)
	s.app.Post(PathWebhook, s.receive)
	s.app.Get(PathHealth, s.health)

	return s
}

// App exposes the fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is done, then shuts down and waits for a running batch.
func (s *Server) Listen(ctx context.Context) error {
	s.baseCtx = ctx

	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error("webhook shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("webhook listening", zap.String("listen", s.cfg.Listen))
	err := s.app.Listen(s.cfg.Listen)
	s.Wait()
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	return nil
}

// Wait blocks until background batches have finished.
func (s *Server) Wait() {
	s.runs.Wait()
}

func (s *Server) verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if s.cfg.VerifyToken == "" || token != s.cfg.VerifyToken || (mode != "" && mode != "subscribe") {
		s.logger.Warn("webhook verification rejected", zap.String("mode", mode))
		return c.Status(fiber.StatusForbidden).SendString("Invalid")
	}

	s.logger.Info("webhook verified")
	return c.SendString(challenge)
}

func (s *Server) receive(c *fiber.Ctx) error {
	var body payload
	if err := c.BodyParser(&body); err != nil {
		s.logger.Warn("malformed webhook payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error"})
	}

	for _, entry := range body.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				s.handle(msg)
			}
		}
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handle(msg message) {
	text := strings.TrimSpace(msg.Text.Body)
	if text == "" {
		return
	}

	log := s.logger.With(zap.String("from", msg.From), zap.String("text", utils.TruncateForLog(text, maxLogLength)))

	cmd, ok := s.deps.Parser.Parse(text)
	if !ok {
		log.Info("message is not a command")
		return
	}

	recipient := s.deps.Recipient
	if recipient == "" {
		recipient = msg.From
	}

	// scheduled runs do not take busy, so the runner state is checked as well
	if s.deps.Runner.State().Active() || !s.busy.TryLock() {
		log.Warn("batch already running, command rejected")
		s.reply(recipient, busyReply)
		return
	}

	log.Info("command accepted", zap.Stringer("command", cmd))

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.busy.Unlock()

		summary := s.deps.Runner.RunCommand(s.baseCtx, cmd)
		s.reply(recipient, fmt.Sprintf("Saved %d/%d jobs for %q.", summary.Stored, cmd.Count, cmd.Keyword))
	}()
}

func (s *Server) reply(recipient, text string) {
	if s.deps.Replier == nil || recipient == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.baseCtx), replyTimeout)
	defer cancel()

	if _, err := s.deps.Replier.Send(ctx, recipient, text); err != nil {
		s.logger.Warn("sending reply failed", zap.Error(err))
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	state := pipeline.StateIdle
	if s.deps.Runner != nil {
		state = s.deps.Runner.State()
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"state":  state.String(),
		"time":   time.Now().UTC(),
	})
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("webhook request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"status": "error", "error": err.Error()})
}
