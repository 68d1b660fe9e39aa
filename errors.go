package uplink

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotOnWorkerThread is returned by Transport.Send when it is called
// with a context that belongs to the host's primary execution
// context. Network I/O must only happen on worker goroutines.
var ErrNotOnWorkerThread = errors.New("submission must not run on the primary execution context")

// ProducerError records a chart whose data producer returned an
// error or panicked. The chart is omitted from the cycle.
type ProducerError struct {
	ChartID string
	Err     error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("problem producing data for chart '%s': %v", e.ChartID, e.Err)
}

func (e *ProducerError) Cause() error  { return e.Err }
func (e *ProducerError) Unwrap() error { return e.Err }

// AggregationError records a registry entry that could not contribute
// a fragment to the report, either because it lacks the capability or
// because its producer failed. The entry is skipped for the cycle.
type AggregationError struct {
	Owner string
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("problem collecting plugin data from '%s': %v", e.Owner, e.Err)
}

func (e *AggregationError) Cause() error  { return e.Err }
func (e *AggregationError) Unwrap() error { return e.Err }

// NetworkError wraps failures to reach the endpoint or to read its
// response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network problem submitting report: " + e.Err.Error() }
func (e *NetworkError) Cause() error  { return e.Err }
func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError covers payloads that could not be encoded and
// responses the endpoint rejected.
type ProtocolError struct {
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("endpoint rejected report with status %d: %v", e.StatusCode, e.Err)
	}
	return "protocol problem submitting report: " + e.Err.Error()
}

func (e *ProtocolError) Cause() error  { return e.Err }
func (e *ProtocolError) Unwrap() error { return e.Err }
