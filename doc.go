// Package uplink collects usage metrics from the components embedded
// in a host process and periodically submits them, as one report, to
// a remote collection endpoint.
//
// Each component constructs a Metrics instance with New and registers
// its charts with AddChart. All instances in a process share a
// Registry; the first one to register becomes the leader and owns the
// only scheduler, which gathers every instance's fragment on the
// host's primary execution context and posts the gzipped report from
// a worker goroutine. Failures never reach the host: charts that fail
// are omitted, instances that fail are skipped, and submissions that
// fail are dropped until the next period.
package uplink
