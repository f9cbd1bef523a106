package app

import (
	"context"
	"log/slog"
	"testing"
)

func TestRunRejectsUnknownCommands(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without a command")
	}
	if err := Run(context.Background(), []string{"launch"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := Run(context.Background(), []string{"migrate", "down"}); err == nil {
		t.Fatal("expected error for migrate arguments")
	}
	if err := Run(context.Background(), []string{"seed"}); err == nil {
		t.Fatal("expected error for seed without a name")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	}
	for input, want := range cases {
		got, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %v got %v", input, want, got)
		}
	}
	if _, err := parseLogLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
