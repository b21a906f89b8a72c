package helpers

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerPerEnvironment(t *testing.T) {
	dev := NewLogger("tasks", "development")
	if dev.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level in development, got %v", dev.GetLevel())
	}
	if _, ok := dev.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter in development, got %T", dev.Formatter)
	}

	prod := NewLogger("tasks", "production")
	if prod.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level in production, got %v", prod.GetLevel())
	}
	if _, ok := prod.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected json formatter in production, got %T", prod.Formatter)
	}
}
