package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return out
}

func TestLogger_InjectsContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "driver-agent", LevelDebug)

	ctx := wrap.WithAction(context.Background(), "publish_location")
	ctx = wrap.WithDeliveryID(ctx, "D1")
	ctx = wrap.WithRequestID(ctx, "req-1")

	l.Info(ctx, "location sent")

	line := decodeLine(t, &buf)
	checks := map[string]string{
		"message":     "location sent",
		"service":     "driver-agent",
		"action":      "publish_location",
		"delivery_id": "D1",
		"request_id":  "req-1",
	}
	for k, want := range checks {
		if got, _ := line[k].(string); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Errorf("expected timestamp key, got %v", line)
	}
}

func TestLogger_ErrorRestoresWrappedContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "svc", LevelDebug)

	inner := wrap.WithDeliveryID(wrap.WithAction(context.Background(), "update_status"), "D9")
	err := wrap.Error(inner, errors.New("boom"))

	l.Error(wrap.ErrorCtx(context.Background(), err), "failed", err)

	line := decodeLine(t, &buf)
	if line["action"] != "update_status" || line["delivery_id"] != "D9" {
		t.Fatalf("expected context from error, got %v", line)
	}
	errGroup, _ := line["error"].(map[string]any)
	if errGroup["msg"] != "boom" {
		t.Fatalf("expected error.msg=boom, got %v", line["error"])
	}
	if _, ok := errGroup["message"]; ok {
		t.Fatalf("nested error key must not be renamed, got %v", line["error"])
	}
	if line["message"] != "failed" {
		t.Fatalf("expected top-level message, got %v", line)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "svc", LevelWarn)

	l.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at WARN level, got %q", buf.String())
	}
}

func TestValidateLogLevel(t *testing.T) {
	if !ValidateLogLevel(LevelInfo) {
		t.Errorf("INFO must be valid")
	}
	if ValidateLogLevel("verbose") {
		t.Errorf("verbose must be invalid")
	}
}

func TestLogger_ErrorCtxKeepsCallerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "svc", LevelDebug)

	raised := wrap.WithDeliveryID(wrap.WithAction(context.Background(), "push"), "D3")
	err := wrap.Error(raised, errors.New("timeout"))

	caller := wrap.WithAction(wrap.WithRequestID(context.Background(), "req-7"), "handler")
	l.Error(wrap.ErrorCtx(caller, err), "failed", err)

	line := decodeLine(t, &buf)
	if line["action"] != "push" || line["delivery_id"] != "D3" {
		t.Fatalf("fields from the error must win, got %v", line)
	}
	if line["request_id"] != "req-7" {
		t.Fatalf("request_id must be filled from the caller, got %v", line)
	}
}
