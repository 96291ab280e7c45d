package utils

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerFallsBackOnBadLevel(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "loud", Encoding: "json", ServiceName: "anony-test"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("expected info level enabled")
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug level disabled")
	}
}

func TestNewLoggerEncodings(t *testing.T) {
	for _, encoding := range []string{"console", "JSON", ""} {
		if _, err := NewLogger(LoggingConfig{Level: "debug", Encoding: encoding}); err != nil {
			t.Fatalf("encoding %q: %v", encoding, err)
		}
	}

	if _, err := NewLogger(LoggingConfig{Encoding: "xml"}); err == nil {
		t.Fatalf("expected error for unsupported encoding")
	}
}

func TestNewLoggerDebugLevel(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "DEBUG", Encoding: "console"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug level enabled")
	}
}

func TestNopIfNil(t *testing.T) {
	if NopIfNil(nil) == nil {
		t.Fatalf("expected nop logger")
	}
}

func TestSessionFieldTruncates(t *testing.T) {
	field := SessionField("0123456789abcdef")
	if field.String != "01234567" {
		t.Fatalf("expected abbreviated session id, got %q", field.String)
	}
	if SessionField("abc").String != "abc" {
		t.Fatalf("expected short id untouched")
	}
}
