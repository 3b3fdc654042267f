// Package health exposes health, readiness and liveness probes for a
// simulator process, including the progress of the current run.
package health

import (
	"time"
)

// NewHealthChecker creates a checker with no probes registered.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		probes: map[Probe]map[string]CheckFunc{
			ProbeHealth:    {},
			ProbeReadiness: {},
			ProbeLiveness:  {},
		},
		startTime: time.Now(),
	}
}

// Register adds check under name to the given probe, replacing any check
// already registered there.
func (hc *HealthChecker) Register(p Probe, name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.probes[p] == nil {
		hc.probes[p] = make(map[string]CheckFunc)
	}
	hc.probes[p][name] = check
}

// RegisterCheck registers a health check
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.Register(ProbeHealth, name, check)
}

// RegisterReadinessCheck registers a readiness check
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.Register(ProbeReadiness, name, check)
}

// RegisterLivenessCheck registers a liveness check
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.Register(ProbeLiveness, name, check)
}

// Check runs the health probe
func (hc *HealthChecker) Check() Response { return hc.Run(ProbeHealth) }

// CheckReadiness runs the readiness probe
func (hc *HealthChecker) CheckReadiness() Response { return hc.Run(ProbeReadiness) }

// CheckLiveness runs the liveness probe
func (hc *HealthChecker) CheckLiveness() Response { return hc.Run(ProbeLiveness) }

// Run executes every check of probe p. The response carries the worst
// status among them, or healthy when none is registered.
func (hc *HealthChecker) Run(p Probe) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	checks := hc.probes[p]
	resp := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    time.Since(hc.startTime).Seconds(),
	}

	for name, fn := range checks {
		start := time.Now()
		c := fn()
		if c.Name == "" {
			c.Name = name
		}
		c.Duration = time.Since(start)
		c.LastChecked = start
		resp.Checks[name] = c

		if severity(c.Status) > severity(resp.Status) {
			resp.Status = c.Status
		}
	}
	return resp
}

func severity(s Status) int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}
