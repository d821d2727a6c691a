package providers

import "time"

// Bounds on provider work that touches disk or the network.
const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)
