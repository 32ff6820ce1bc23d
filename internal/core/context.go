package core

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// CorrelationID uniquely identifies a virtual user within its scenario for
// the lifetime of that copy.
type CorrelationID struct {
	ID           string
	ScenarioName string
	CopyNumber   int
}

func NewCorrelationID(scenarioName string, copyNumber int) CorrelationID {
	return CorrelationID{
		ID:           fmt.Sprintf("%s_%d", scenarioName, copyNumber),
		ScenarioName: scenarioName,
		CopyNumber:   copyNumber,
	}
}

// ScenarioContext is handed to scenario init and clean hooks.
type ScenarioContext struct {
	ScenarioName   string
	CustomSettings CustomSettings
	Logger         *logrus.Entry
}

// StepContext carries everything a step body may need for one execution.
// A StepContext is owned by exactly one virtual user and never shared.
type StepContext struct {
	Correlation CorrelationID
	// Connection is the pool slot for this copy, nil when the step has no pool.
	Connection any
	// FeedItem is the item pulled for this execution, nil when the step has no feed.
	FeedItem any
	// InvocationCount is the 1-indexed number of the current pipeline pass
	// of this copy; it increments when a pass starts.
	InvocationCount int
	Logger          *logrus.Entry

	ctx      context.Context
	prev     any
	hasPrev  bool
	stopTest func(reason string)
}

// NewStepContext assembles a context for one step execution. Called by the
// pipeline; user code receives it ready-made.
func NewStepContext(ctx context.Context, corr CorrelationID, conn, feedItem any, invocation int, prev any, hasPrev bool, logger *logrus.Entry, stopTest func(reason string)) *StepContext {
	return &StepContext{
		Correlation:     corr,
		Connection:      conn,
		FeedItem:        feedItem,
		InvocationCount: invocation,
		Logger:          logger,
		ctx:             ctx,
		prev:            prev,
		hasPrev:         hasPrev,
		stopTest:        stopTest,
	}
}

// Context returns the cancellation context of this virtual user.
func (s *StepContext) Context() context.Context {
	return s.ctx
}

// IsCancelled reports whether the session or this copy has been cancelled.
func (s *StepContext) IsCancelled() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// PreviousResponse returns the payload produced by the previous step in this
// pipeline pass, and whether one exists.
func (s *StepContext) PreviousResponse() (any, bool) {
	return s.prev, s.hasPrev
}

// PreviousResponseAs performs a typed read of the previous step payload.
// A missing or wrong-typed value yields the zero value and false; user code
// should treat that as a step failure, not a crash.
func PreviousResponseAs[T any](s *StepContext) (T, bool) {
	var zero T
	if !s.hasPrev {
		return zero, false
	}
	v, ok := s.prev.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// StopCurrentTest requests cooperative termination of the whole session.
// The current step's response is still processed; copies exit at the next
// step boundary.
func (s *StepContext) StopCurrentTest(reason string) {
	if s.stopTest != nil {
		s.stopTest(reason)
	}
}
