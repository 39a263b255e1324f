package constants

import "time"

// Shared duration vocabulary used by timeouts, polling and retry checks.
// Keep these centralized to simplify system-wide timing tuning.
const (
	Duration100Milliseconds = 100 * time.Millisecond
	Duration250Milliseconds = 250 * time.Millisecond
	Duration500Milliseconds = 500 * time.Millisecond

	Duration1Second   = 1 * time.Second
	Duration2Seconds  = 2 * time.Second
	Duration5Seconds  = 5 * time.Second
	Duration10Seconds = 10 * time.Second
	Duration30Seconds = 30 * time.Second
)

// Domain-level timeout constants.
const (
	GatewayShutdownTimeout = Duration5Seconds
	ClientRequestTimeout   = Duration10Seconds
	ClientDialTimeout      = Duration5Seconds
)
