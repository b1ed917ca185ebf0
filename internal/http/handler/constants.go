package handler

const (
	paramService  = "service"
	paramDuration = "duration"

	jsonKeyError = "error"

	defaultDurationSeconds = 3600

	msgServiceParamRequired = "service parameter required"
	msgInvalidDurationParam = "duration must be a positive integer number of seconds"
)
