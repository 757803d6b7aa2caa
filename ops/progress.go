package ops

import (
	glog "github.com/goliatone/go-logger/glog"
)

// ProgressReporter receives the poller's user-visible event stream. The
// three channels are presentation-neutral; renderers decide the format.
type ProgressReporter interface {
	Progress(message string)
	Warning(message string)
	Error(message string)
}

// LoggerReporter renders progress events to a structured log with the
// stable textual prefixes callers grep for.
type LoggerReporter struct {
	Logger glog.Logger
}

func NewLoggerReporter(logger glog.Logger) LoggerReporter {
	return LoggerReporter{Logger: glog.Ensure(logger)}
}

func (r LoggerReporter) Progress(message string) {
	glog.Ensure(r.Logger).Info("Waiting for " + message)
}

func (r LoggerReporter) Warning(message string) {
	glog.Ensure(r.Logger).Warn("WARNING: " + message)
}

func (r LoggerReporter) Error(message string) {
	glog.Ensure(r.Logger).Error("ERROR: " + message)
}

type NopReporter struct{}

func (NopReporter) Progress(string) {}
func (NopReporter) Warning(string)  {}
func (NopReporter) Error(string)    {}
