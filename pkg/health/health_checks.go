package health

import (
	"runtime"
	"sync"
	"time"

	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
)

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// RunTracker follows one simulation run. It is a propagation.Observer.
type RunTracker struct {
	mu    sync.RWMutex
	state RunState
}

// NewRunTracker returns a tracker in the pending phase
func NewRunTracker() *RunTracker {
	return &RunTracker{state: RunState{Phase: PhasePending}}
}

// Start marks the run as running
func (t *RunTracker) Start(runID string, steps int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = RunState{Phase: PhaseRunning, RunID: runID, Steps: steps}
}

// ObserveTick records progress after each tick
func (t *RunTracker) ObserveTick(ev propagation.TickEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Tick = ev.Tick + 1
	t.state.Nodes = ev.Nodes
	t.state.Infected = ev.Infected
}

// Finish ends the run. A non-nil err moves it to the failed phase.
func (t *RunTracker) Finish(success bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Success = success
	t.state.Err = err
	if err != nil {
		t.state.Phase = PhaseFailed
	} else {
		t.state.Phase = PhaseFinished
	}
}

// Snapshot returns the current state
func (t *RunTracker) Snapshot() RunState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func runDetails(s RunState) map[string]any {
	return map[string]any{
		"phase":    s.Phase,
		"run_id":   s.RunID,
		"tick":     s.Tick,
		"steps":    s.Steps,
		"infected": s.Infected,
		"nodes":    s.Nodes,
	}
}

// RunProgressCheck reports the run as healthy while it progresses, degraded
// when it finished with failed invariants and unhealthy when it errored.
func RunProgressCheck(t *RunTracker) CheckFunc {
	return func() Check {
		s := t.Snapshot()
		check := Check{Name: "run", Details: runDetails(s)}

		switch {
		case s.Phase == PhaseFailed:
			check.Status = StatusUnhealthy
			check.Message = s.Err.Error()
		case s.Phase == PhaseFinished && !s.Success:
			check.Status = StatusDegraded
			check.Message = "Invariants failed"
		case s.Phase == PhaseFinished:
			check.Status = StatusHealthy
			check.Message = "Run complete"
		case s.Phase == PhaseRunning:
			check.Status = StatusHealthy
			check.Message = "Run in progress"
		default:
			check.Status = StatusHealthy
			check.Message = "Waiting to start"
		}
		return check
	}
}

// RunCompleteCheck is healthy once the run has a result to serve.
func RunCompleteCheck(t *RunTracker) CheckFunc {
	return func() Check {
		s := t.Snapshot()
		check := Check{Name: "run_complete", Details: runDetails(s)}

		if s.Phase == PhaseFinished {
			check.Status = StatusHealthy
			check.Message = "Result available"
		} else {
			check.Status = StatusUnhealthy
			check.Message = "No result yet"
		}
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := 0.0
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}

// RuntimeMemory reads heap allocation and total memory from the Go runtime.
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
