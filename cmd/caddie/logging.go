package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/koscakluka/ema-caddie/internal/config"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// setupLogging sends both the CLI's slog records and the library packages'
// otel log records to the configured file, since the terminal belongs to
// the round UI. Without a file everything is discarded.
func setupLogging(cfg config.LogConfig) (func(), error) {
	level := slogLevel(cfg.Level)
	if cfg.File == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	exporter, err := stdoutlog.New(stdoutlog.WithWriter(f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(
		sdklog.NewSimpleProcessor(&severityFilter{Exporter: exporter, min: otelSeverity(level)}),
	))
	global.SetLoggerProvider(provider)

	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))

	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "flush logs: %v\n", err)
		}
		_ = f.Close()
	}, nil
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// otelSeverity mirrors the slog level mapping of the otelslog bridge.
func otelSeverity(level slog.Level) otellog.Severity {
	switch {
	case level <= slog.LevelDebug:
		return otellog.SeverityDebug
	case level <= slog.LevelInfo:
		return otellog.SeverityInfo
	case level <= slog.LevelWarn:
		return otellog.SeverityWarn
	default:
		return otellog.SeverityError
	}
}

// severityFilter drops records below min before they reach the exporter.
type severityFilter struct {
	sdklog.Exporter
	min otellog.Severity
}

func (f *severityFilter) Export(ctx context.Context, records []sdklog.Record) error {
	kept := records[:0:0]
	for _, record := range records {
		if record.Severity() >= f.min {
			kept = append(kept, record)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return f.Exporter.Export(ctx, kept)
}
