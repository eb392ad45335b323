package health

import "context"

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks availability of a component.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
