package core

import "time"

// ExitCode signals pipeline-level control flow from a step response.
type ExitCode int

const (
	// ExitOk is the normal exit code.
	ExitOk ExitCode = iota
	// ExitStopTest requests cooperative termination of the whole session.
	ExitStopTest
)

// Response is the outcome of a single step execution.
type Response struct {
	Ok      bool
	Payload any
	// SizeBytes is the transferred size attributed to this step. When zero
	// and the payload is a string or byte slice, the payload length is used.
	SizeBytes int64
	// Latency, when non-zero, overrides the measured step latency in stats.
	Latency time.Duration
	Message string
	Exit    ExitCode
}

// NewOkResponse returns a successful response carrying an optional payload.
func NewOkResponse(payload any) Response {
	return Response{
		Ok:        true,
		Payload:   payload,
		SizeBytes: payloadSize(payload),
	}
}

// NewFailResponse returns a failed response with a reason message.
func NewFailResponse(message string) Response {
	return Response{Ok: false, Message: message}
}

// WithSize overrides the response size.
func (r Response) WithSize(n int64) Response {
	r.SizeBytes = n
	return r
}

// WithLatency overrides the measured latency reported for this step.
func (r Response) WithLatency(d time.Duration) Response {
	r.Latency = d
	return r
}

// WithStopTest marks the response as a request to stop the whole session.
func (r Response) WithStopTest() Response {
	r.Exit = ExitStopTest
	return r
}

// EffectiveSize resolves the reported size, falling back to payload length.
func (r Response) EffectiveSize() int64 {
	if r.SizeBytes > 0 {
		return r.SizeBytes
	}
	return payloadSize(r.Payload)
}

func payloadSize(payload any) int64 {
	switch p := payload.(type) {
	case nil:
		return 0
	case []byte:
		return int64(len(p))
	case string:
		return int64(len(p))
	default:
		return 0
	}
}
