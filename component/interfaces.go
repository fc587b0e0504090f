package component

import "context"

// HealthStatus is a coarse component state.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is a point-in-time health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a part of a pipeline whose lifecycle the Registry drives.
// For a stage, Start blocks until its engine is ready and Stop releases
// the engine.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is one line of the run summary.
type Description struct {
	Name string
	// Type is the stage kind, e.g. "demux" or "encode".
	Type    string
	Details string
}

// Describable components report their own summary line.
type Describable interface {
	Describe() Description
}
