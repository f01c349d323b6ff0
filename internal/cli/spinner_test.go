package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), "Schematizing 3 segments...")
	s.w = &buf
	s.Start()
	time.Sleep(3 * spinnerTick)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Schematizing 3 segments...") {
		t.Errorf("output %q lacks the message", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("output %q does not end with a cleared line", out)
	}
}

func TestSpinnerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinner(ctx, "working")
	s.w = &bytes.Buffer{}
	s.Start()
	cancel()

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("spinner still running after its context ended")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), "working")
	s.w = &bytes.Buffer{}
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner(context.Background(), "idle")
	s.Stop()
}

func TestSpinnerUpdate(t *testing.T) {
	s := newSpinner(context.Background(), "short")
	s.Update("a much longer message")
	s.Update("tiny")
	if s.message != "tiny" || s.width != len("a much longer message") {
		t.Errorf("message = %q width = %d", s.message, s.width)
	}
}
