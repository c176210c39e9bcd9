package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"eventara.org/internal/account"
	"eventara.org/internal/obs"
)

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithClientIP(ctx, "203.0.113.9")
	ctx = account.ContextWithAccount(ctx, &account.Account{ID: "acct-42", Email: "ops@eventara.org"})

	if err := LogEvent(ctx, "auth.login.failed", map[string]any{"email": "alice@example.com"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "auth.login.failed" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["ip"] != "203.0.113.9" {
		t.Fatalf("unexpected ip: %v", entry["ip"])
	}
	if entry["actor_id"] != "acct-42" {
		t.Fatalf("unexpected actor: %v", entry["actor_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["email"] != "alice@example.com" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}
