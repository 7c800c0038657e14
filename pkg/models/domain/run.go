package domain

import "time"

// RunStatus is the lifecycle state of one CheckRun.
type RunStatus string

const (
	StatusPending   RunStatus = "PENDING"
	StatusRunning   RunStatus = "RUNNING"
	StatusCached    RunStatus = "CACHED"
	StatusSucceeded RunStatus = "SUCCEEDED"
	StatusFailed    RunStatus = "FAILED"
)

// Terminal reports whether the status is one of the three end states.
func (s RunStatus) Terminal() bool {
	return s == StatusCached || s == StatusSucceeded || s == StatusFailed
}

// Scope is the input scope a check executes against. Accounts and
// regions are treated as sets: the cache key sorts them.
type Scope struct {
	Accounts []string
	Regions  []string
	Customer string
	Extra    map[string]string
}

// CheckRun is the mutable runtime record produced by executing one
// check. The engine owns the collection; a run is not mutated after
// aggregation begins.
type CheckRun struct {
	Descriptor CheckDescriptor
	Parameters map[string]string
	Scope      Scope

	Status         RunStatus
	Data           *Table
	Savings        float64
	Recommendation string
	ExecutionIDs   []string
	FailReason     string

	// DependencyData holds upstream check outputs keyed by check name,
	// fully populated before the run dispatches.
	DependencyData map[string]*Table

	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the run produced usable data, whether fresh
// or from cache.
func (r *CheckRun) Succeeded() bool {
	return r.Status == StatusSucceeded || r.Status == StatusCached
}

// Fail moves the run to FAILED with the given reason.
func (r *CheckRun) Fail(reason string) {
	r.Status = StatusFailed
	r.FailReason = reason
	r.FinishedAt = time.Now()
}
