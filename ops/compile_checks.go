package ops

var (
	_ Clock            = SystemClock{}
	_ ProgressReporter = LoggerReporter{}
	_ ProgressReporter = NopReporter{}
)
