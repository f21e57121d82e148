package logging

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/zap"
)

// NewZap returns a Logger writing to z. Arguments follow the slog convention
// of alternating keys and values; slog.Attr and zap.Field values are accepted
// as-is. A nil z yields Nop.
func NewZap(z *zap.Logger) Logger {
	if z == nil {
		return Nop()
	}
	return &zapLogger{logger: z}
}

type zapLogger struct {
	logger *zap.Logger
}

func (l *zapLogger) Debug(_ context.Context, msg string, args ...any) {
	l.logger.Debug(msg, fields(args)...)
}

func (l *zapLogger) Info(_ context.Context, msg string, args ...any) {
	l.logger.Info(msg, fields(args)...)
}

func (l *zapLogger) Warn(_ context.Context, msg string, args ...any) {
	l.logger.Warn(msg, fields(args)...)
}

func (l *zapLogger) Error(_ context.Context, msg string, args ...any) {
	l.logger.Error(msg, fields(args)...)
}

func (l *zapLogger) With(args ...any) Logger {
	return &zapLogger{logger: l.logger.With(fields(args)...)}
}

const badKey = "!BADKEY"

func fields(args []any) []zap.Field {
	out := make([]zap.Field, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case zap.Field:
			out = append(out, v)
		case slog.Attr:
			out = append(out, zap.Any(v.Key, v.Value.Resolve().Any()))
		case string:
			if i+1 == len(args) {
				out = append(out, zap.String(badKey, v))
				continue
			}
			out = append(out, zap.Any(v, args[i+1]))
			i++
		default:
			out = append(out, zap.String(badKey, fmt.Sprint(v)))
		}
	}
	return out
}
