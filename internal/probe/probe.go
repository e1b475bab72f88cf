package probe

import "context"

// Outcome is the result of one two-stage probe.
//
// Fields:
//   - LatencyMS: elapsed time since the probe started, also on failure.
//   - StatusCode: status of the deciding response; 0 for transport errors.
//   - Method: the request that decided the outcome (HEAD or GET).
//   - FailureDetail: "HTTP <code>: <text>" or the transport error; empty when reachable.
type Outcome struct {
	Reachable     bool
	LatencyMS     int64
	StatusCode    int
	Method        string
	FailureDetail string
}

// Prober checks whether a URL is reachable. Implementations never fail;
// problems are reported through the Outcome.
type Prober interface {
	Probe(ctx context.Context, target string) Outcome
}
