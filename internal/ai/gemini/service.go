package gemini

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/job-intake/internal/logger"
	"github.com/spigell/job-intake/internal/utils"

	"go.uber.org/zap"
)

const (
	defaultMaxLogLength = 200
	// Descriptions are cut before being sent to keep requests small.
	maxInputRunes = 6000
)

//go:embed prompt_requirements.md
var requirementsPrompt string

//go:embed prompt_research.md
var researchPrompt string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Service implements ai.TextService on top of a Gemini generator.
type Service struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewService(generator contentGenerator, maxLogLength int, log *zap.Logger) *Service {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Service{
		generator: generator,
		logger:    logger.WithAI(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (s *Service) ExtractRequirements(ctx context.Context, description string) (string, error) {
	return s.ask(ctx, "extract requirements", requirementsPrompt, description)
}

func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	return s.ask(ctx, "summarize company", researchPrompt, text)
}

func (s *Service) ask(ctx context.Context, op, system, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("input text must not be empty")
	}
	if utf8.RuneCountInString(text) > maxInputRunes {
		text = string([]rune(text)[:maxInputRunes])
	}

	s.logger.Debug("gemini generate content request",
		zap.String("operation", op),
		zap.Int("prompt_length", utf8.RuneCountInString(text)),
		zap.String("prompt_preview", utils.TruncateForLog(text, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, system, text)
	if err != nil {
		return "", err
	}

	s.logger.Debug("gemini generate content response",
		zap.String("operation", op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	return raw, nil
}
