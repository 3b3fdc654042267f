package health

import (
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the outcome of one named probe
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc performs a probe
type CheckFunc func() Check

// Probe selects which endpoint a check answers for.
type Probe string

const (
	ProbeHealth    Probe = "health"
	ProbeReadiness Probe = "ready"
	ProbeLiveness  Probe = "live"
)

// HealthChecker holds the probes behind the health, readiness and liveness
// endpoints of the simulator.
type HealthChecker struct {
	mu        sync.RWMutex
	probes    map[Probe]map[string]CheckFunc
	startTime time.Time
}

// Response aggregates every probe of one endpoint; the worst status wins.
type Response struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}

// Phase is the lifecycle position of a simulation run
type Phase string

const (
	PhasePending  Phase = "pending"
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
	PhaseFailed   Phase = "failed"
)

// RunState is a point-in-time copy of a RunTracker
type RunState struct {
	Phase    Phase  `json:"phase"`
	RunID    string `json:"run_id,omitempty"`
	Tick     int    `json:"tick"` // ticks completed
	Steps    int    `json:"steps"`
	Nodes    int    `json:"nodes"`
	Infected int    `json:"infected"`
	Success  bool   `json:"success"`
	Err      error  `json:"-"`
}
