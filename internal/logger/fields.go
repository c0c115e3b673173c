package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/posting"
)

// Structured field keys shared across packages.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"

	FieldJobID   = "job_id"
	FieldTitle   = "job_title"
	FieldCompany = "company"
	FieldPortal  = "portal"

	FieldSource = "source"
	FieldQuery  = "query"
	FieldPage   = "page"
)

// StringField is a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields. Keys and values are
// trimmed; pairs with an empty key or value are dropped.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// AIFields describes the AI provider and model.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithAI(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, AIFields(provider, model)...)
}

// PostingFields describes a posting. Empty values are omitted.
func PostingFields(p *posting.Posting) []zap.Field {
	if p == nil {
		return nil
	}

	return StringFields(
		StringField{Key: FieldJobID, Value: p.ID},
		StringField{Key: FieldTitle, Value: p.Title},
		StringField{Key: FieldCompany, Value: p.Company},
		StringField{Key: FieldPortal, Value: p.Portal},
	)
}

func WithPosting(logger *zap.Logger, p *posting.Posting) *zap.Logger {
	return WithFields(logger, PostingFields(p)...)
}

// QueryFields describes one page request against a job source.
func QueryFields(source, query string, page int) []zap.Field {
	fields := StringFields(
		StringField{Key: FieldSource, Value: source},
		StringField{Key: FieldQuery, Value: query},
	)
	if page > 0 {
		fields = append(fields, zap.Int(FieldPage, page))
	}
	return fields
}
