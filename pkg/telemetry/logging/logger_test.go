package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid JSON config", config: Config{Level: "info", Format: "json"}},
		{name: "valid text config", config: Config{Level: "debug", Format: "text"}},
		{name: "defaults", config: Config{}},
		{name: "invalid log level", config: Config{Level: "invalid", Format: "json"}, wantErr: true},
		{name: "invalid format", config: Config{Level: "info", Format: "console"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn should be filtered: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected warn and error messages: %s", out)
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithBidID(context.Background(), "bid-1")
	ctx = WithEntity(ctx, "Acme")
	ctx = WithActor(ctx, "jdoe")
	logger.InfoContext(ctx, "checked", "result", "Allowed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"bid_id": "bid-1",
		"entity": "Acme",
		"actor":  "jdoe",
		"result": "Allowed",
	} {
		if entry[key] != want {
			t.Errorf("expected %s=%q, got %v", key, want, entry[key])
		}
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Level: "info", Format: "text", Writer: &buf})

	if logger.WithContext(context.Background()) != logger {
		t.Error("empty context should return the same logger")
	}

	logger.WithContext(WithBidID(context.Background(), "bid-7")).Info("hello")
	if !strings.Contains(buf.String(), "bid_id=bid-7") {
		t.Errorf("expected bid_id field, got %s", buf.String())
	}
}

func TestLogger_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Level: "info", Format: "text", Writer: &buf})

	logger.Slog().With("component", "policy").Info("ready")
	if !strings.Contains(buf.String(), "component=policy") {
		t.Errorf("expected component field, got %s", buf.String())
	}
}

func TestLogger_SlogCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Level: "info", Format: "text", Writer: &buf})

	ctx := WithBidID(context.Background(), "bid-9")
	logger.Slog().With("component", "bid.engine").InfoContext(ctx, "bid completed")
	out := buf.String()
	if !strings.Contains(out, "bid_id=bid-9") || !strings.Contains(out, "component=bid.engine") {
		t.Errorf("expected bid_id and component fields, got %s", out)
	}
}

func TestGetters_EmptyContext(t *testing.T) {
	ctx := context.Background()
	if GetBidID(ctx) != "" || GetEntity(ctx) != "" || GetActor(ctx) != "" {
		t.Error("expected empty values from bare context")
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}
}

func TestParseLevel(t *testing.T) {
	for _, in := range []string{"debug", "INFO", "", "warning", "error"} {
		if _, err := parseLevel(in); err != nil {
			t.Errorf("parseLevel(%q) unexpected error: %v", in, err)
		}
	}
	if _, err := parseLevel("trace"); err == nil {
		t.Error("expected error for unknown level")
	}
}
