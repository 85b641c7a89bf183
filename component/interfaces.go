package component

import (
	"context"
	"fmt"
)

// HealthStatus is the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

func (s HealthStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	}
	return 2
}

// Worse returns the more severe of s and other. Unknown statuses count as
// unhealthy.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if other.severity() > s.severity() {
		return other
	}
	return s
}

// Health is a point-in-time report for one component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-lived dependency with a start/stop lifecycle, such as
// an API client built from configuration.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is the startup summary line of a component.
type Description struct {
	Name    string
	Type    string
	Details string
}

func (d Description) String() string {
	s := d.Name
	if d.Type != "" {
		s = fmt.Sprintf("%s (%s)", s, d.Type)
	}
	if d.Details != "" {
		s += " " + d.Details
	}
	return s
}

// Describable is implemented by components that can summarize their
// configuration.
type Describable interface {
	Describe() Description
}
