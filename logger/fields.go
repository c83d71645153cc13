package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across jobpulse.
// Use these constants instead of raw strings.
const (
	// Identity and context
	FieldCycleID  = "cycle_id"
	FieldCategory = "category"
	FieldSource   = "source"
	FieldSlug     = "slug"
	FieldListing  = "listing_id"
	FieldCompany  = "company"
	FieldHandle   = "handle"

	// Components
	FieldComponent = "component"
	FieldTask      = "task"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldInterval   = "interval"

	// Errors
	FieldError  = "error"
	FieldDetail = "detail"

	// Counts
	FieldCount   = "count"
	FieldOpened  = "opened"
	FieldClosed  = "closed"
	FieldPending = "pending"

	// Status
	FieldStatus = "status"
	FieldState  = "state"

	// Files and paths
	FieldPath = "path"
	FieldURL  = "url"

	FieldSymbol  = "symbol"
	FieldPayload = "payload"
)

type contextKey string

const (
	cycleIDKey  contextKey = "logger_cycle_id"
	sourceKey   contextKey = "logger_source"
	categoryKey contextKey = "logger_category"
)

// WithCycleID adds a cycle ID to the context for logging
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleIDKey, cycleID)
}

// WithSource adds a source slug to the context for logging
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// WithCategory adds a category name to the context for logging
func WithCategory(ctx context.Context, category string) context.Context {
	return context.WithValue(ctx, categoryKey, category)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if cycleID, ok := ctx.Value(cycleIDKey).(string); ok && cycleID != "" {
		fields = append(fields, FieldCycleID, cycleID)
	}
	if category, ok := ctx.Value(categoryKey).(string); ok && category != "" {
		fields = append(fields, FieldCategory, category)
	}
	if source, ok := ctx.Value(sourceKey).(string); ok && source != "" {
		fields = append(fields, FieldSource, source)
	}

	return fields
}

// FromContext returns base enriched with the fields carried by ctx.
// A nil base falls back to the global Logger.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
