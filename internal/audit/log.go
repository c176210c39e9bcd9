package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"eventara.org/internal/account"
	"eventara.org/internal/obs"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	clientIPKey  ctxKey = "audit_client_ip"
)

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithClientIP attaches the caller's IP address to the context so every
// security-relevant event carries it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(clientIPKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request, actor and client-IP
// context. Every state-changing authentication outcome goes through here:
// logins (all outcomes), password changes, code sends and verifications,
// suspensions and reactivations. Passwords and live code values must never
// appear in fields.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		entry["ip"] = ip
	}
	if actor, ok := account.FromContext(ctx); ok {
		entry["actor_id"] = actor.ID
		entry["actor_email"] = actor.Email
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
