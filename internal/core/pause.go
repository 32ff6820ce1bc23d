package core

import "time"

// NewPauseStep returns a built-in step that sleeps for d and succeeds.
// It is never tracked in statistics.
func NewPauseStep(d time.Duration) *Step {
	s := NewStep("pause", func(ctx *StepContext) Response {
		select {
		case <-time.After(d):
		case <-ctx.Context().Done():
		}
		return NewOkResponse(nil)
	})
	return s.WithDoNotTrack()
}
