package core

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestCorrelationID_Format(t *testing.T) {
	corr := NewCorrelationID("checkout", 42)
	if corr.ID != "checkout_42" {
		t.Errorf("expected id %q, got %q", "checkout_42", corr.ID)
	}
	if corr.ScenarioName != "checkout" || corr.CopyNumber != 42 {
		t.Errorf("unexpected correlation fields: %+v", corr)
	}
}

func TestStepContext_PreviousResponseTypedRead(t *testing.T) {
	ctx := NewStepContext(context.Background(), NewCorrelationID("s", 1), nil, nil, 1, "payload", true, discardLogger(), nil)

	got, ok := PreviousResponseAs[string](ctx)
	if !ok || got != "payload" {
		t.Errorf("expected typed read to yield %q, got %q ok=%v", "payload", got, ok)
	}

	// Wrong type must fail the read, not crash.
	if _, ok := PreviousResponseAs[int](ctx); ok {
		t.Error("expected wrong-typed read to report false")
	}
}

func TestStepContext_PreviousResponseMissing(t *testing.T) {
	ctx := NewStepContext(context.Background(), NewCorrelationID("s", 1), nil, nil, 1, nil, false, discardLogger(), nil)
	if _, ok := ctx.PreviousResponse(); ok {
		t.Error("expected no previous response on first step")
	}
	if _, ok := PreviousResponseAs[string](ctx); ok {
		t.Error("expected typed read of missing value to report false")
	}
}

func TestStepContext_StopCurrentTest(t *testing.T) {
	var reason string
	ctx := NewStepContext(context.Background(), NewCorrelationID("s", 1), nil, nil, 1, nil, false, discardLogger(), func(r string) {
		reason = r
	})
	ctx.StopCurrentTest("enough data")
	if reason != "enough data" {
		t.Errorf("expected stop reason to propagate, got %q", reason)
	}
}

func TestStepContext_IsCancelled(t *testing.T) {
	cctx, cancel := context.WithCancel(context.Background())
	ctx := NewStepContext(cctx, NewCorrelationID("s", 1), nil, nil, 1, nil, false, discardLogger(), nil)

	if ctx.IsCancelled() {
		t.Error("expected not cancelled before cancel")
	}
	cancel()
	if !ctx.IsCancelled() {
		t.Error("expected cancelled after cancel")
	}
}

func TestPauseStep_RespectsCancellation(t *testing.T) {
	step := NewPauseStep(10 * time.Second)
	if !step.DoNotTrack {
		t.Error("pause step must not be tracked")
	}

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	ctx := NewStepContext(cctx, NewCorrelationID("s", 1), nil, nil, 1, nil, false, discardLogger(), nil)

	start := time.Now()
	resp := step.Execute(ctx)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("pause did not return promptly on cancellation, took %v", elapsed)
	}
	if !resp.Ok {
		t.Error("pause step must return ok")
	}
}

func TestPauseStep_SleepsForDuration(t *testing.T) {
	step := NewPauseStep(50 * time.Millisecond)
	ctx := NewStepContext(context.Background(), NewCorrelationID("s", 1), nil, nil, 1, nil, false, discardLogger(), nil)

	start := time.Now()
	step.Execute(ctx)
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("pause returned too early after %v", elapsed)
	}
}
