package caddie

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-caddie/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	turnCounter, _ = meter.Int64Counter("caddie.turns",
		metric.WithDescription("Conversational turns by outcome"))
	shotCounter, _ = meter.Int64Counter("caddie.shots_logged",
		metric.WithDescription("Shots appended to the hole-by-hole record"))
)

const (
	turnOutcomeCompleted = "completed"
	turnOutcomeMissed    = "missed"
	turnOutcomeTimeout   = "timeout"
)
