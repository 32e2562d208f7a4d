package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/geocoder89/bankdesk/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return out
}

func TestLogger_AddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	ctx := actorctx.WithRequestID(context.Background(), "req-42")
	ctx = actorctx.WithProcessID(ctx, "proc-7")

	log.InfoContext(ctx, "hello")

	line := decodeLine(t, &buf)
	if line["request_id"] != "req-42" || line["process_id"] != "proc-7" {
		t.Fatalf("missing ids in %v", line)
	}
	if _, ok := line["user_id"]; ok {
		t.Fatalf("user_id should be absent when not set: %v", line)
	}
}

func TestLogger_AddsActor(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	ctx := actorctx.WithUserID(context.Background(), "u-9")
	ctx = actorctx.WithUsername(ctx, "manager")

	log.InfoContext(ctx, "acting")

	line := decodeLine(t, &buf)
	if line["user_id"] != "u-9" || line["username"] != "manager" {
		t.Fatalf("missing actor in %v", line)
	}
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	ctx = actorctx.WithRequestID(ctx, "req-1")

	log.InfoContext(ctx, "traced")

	line := decodeLine(t, &buf)
	if line["trace_id"] != sc.TraceID().String() || line["span_id"] != sc.SpanID().String() {
		t.Fatalf("missing trace ids in %v", line)
	}
	if line["request_id"] != "req-1" {
		t.Fatalf("trace and request ids should share one record: %v", line)
	}
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger("prod", &buf).Debug("quiet")
	if buf.Len() != 0 {
		t.Fatalf("debug should be dropped outside dev, got %s", buf.String())
	}

	newLogger("dev", &buf).Debug("loud")
	if buf.Len() == 0 {
		t.Fatalf("debug should be emitted in dev")
	}
}
