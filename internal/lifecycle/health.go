package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icare-life/carebot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes implements HealthChecker over the component health checker.
type Probes struct {
	checker *health.Checker
	log     *slog.Logger
}

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Liveness reports success while the process is able to serve requests.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness fails when any registered component check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.checker == nil {
		return nil
	}

	for component, status := range p.checker.Check(ctx) {
		if status != "OK" {
			return fmt.Errorf("component %s is unhealthy: %s", component, status)
		}
	}

	return nil
}
