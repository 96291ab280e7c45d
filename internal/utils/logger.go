package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the service logger: one core writing to stdout, console
// or json encoded, with internal zap errors sent to stderr. An unknown level
// falls back to info.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoder, err := newEncoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(level))

	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	}

	logger := zap.New(core, opts...)
	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		logger = logger.Named(name).With(zap.String("service", name))
	}

	return logger, nil
}

func newEncoder(encoding string) (zapcore.Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "console":
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(encoderCfg), nil
	case "json", "":
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "time"
		encoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder
		return zapcore.NewJSONEncoder(encoderCfg), nil
	default:
		return nil, fmt.Errorf("logger: unsupported LOG_ENCODING %q", encoding)
	}
}

// NopIfNil lets components accept an optional logger.
func NopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// SessionField abbreviates a session identifier for log lines so full
// cookie values never reach the logs.
func SessionField(id string) zap.Field {
	if len(id) > 8 {
		id = id[:8]
	}
	return zap.String("session", id)
}
