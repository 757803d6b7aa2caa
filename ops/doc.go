// Package ops drives remote long-running operations to completion. A
// Descriptor names one operation; Poller waits on a single operation and
// BatchPoller waits on many with one batched transport call per tick. The
// transport, clock, and progress reporter are injected so callers control
// the wire protocol, time, and presentation.
package ops
