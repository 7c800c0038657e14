// Package executor drives the per-check lifecycle: parameter
// injection, precondition gating, dependency resolution, cache probe,
// dispatch bookkeeping and post-processing.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/registry"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/store/cache"
)

// Pass distinguishes the dedicated precondition pass from the main one.
type Pass int

const (
	PassMain Pass = iota
	PassPrecondition
)

// DependencyRunner executes one dependency check through its own
// provider and returns its table. The engine implements it so
// dependency resolution can cross provider boundaries.
type DependencyRunner interface {
	RunDependency(ctx context.Context, dep domain.CheckDependency, scope domain.Scope) (*domain.Table, error)
}

// Executor prepares and finishes CheckRuns. It never talks to an
// upstream itself; adapters dispatch and hand the result back.
type Executor struct {
	registry *registry.Registry
	cache    *cache.Store
	config   domain.Config
	deps     DependencyRunner
	now      func() time.Time
}

// New assembles an executor. deps may be nil when no check in scope
// declares dependencies.
func New(reg *registry.Registry, cacheStore *cache.Store, cfg domain.Config, deps DependencyRunner) *Executor {
	return &Executor{
		registry: reg,
		cache:    cacheStore,
		config:   cfg,
		deps:     deps,
		now:      time.Now,
	}
}

// Key derives the cache key for a check in a scope.
func (e *Executor) Key(desc domain.CheckDescriptor, scope domain.Scope) cache.Key {
	return cache.Key{
		Identifier: desc.Identifier,
		Accounts:   scope.Accounts,
		Regions:    scope.Regions,
		Customer:   scope.Customer,
		Extra:      scope.Extra,
	}
}

// Prepare walks the pre-dispatch lifecycle for one approved check. A
// nil run with a nil error means the check was gated out of this pass.
func (e *Executor) Prepare(ctx context.Context, desc domain.CheckDescriptor, scope domain.Scope, pass Pass) (*domain.CheckRun, error) {
	logger := zerolog.Ctx(ctx).With().Str("check", desc.Identifier).Logger()

	chk, ok := e.registry.Check(desc.Identifier)
	if !ok {
		return nil, domain.CheckNotFound{Identifier: desc.Identifier}
	}

	// Parameter injection: persisted overrides win, defaults remain for
	// anything unset.
	if params := e.config.ParametersFor(desc.Identifier); len(params) > 0 {
		chk.SetParameters(params)
	}
	desc = chk.Descriptor()

	// Precondition gate.
	if desc.Flags.Disabled {
		return nil, nil
	}
	if desc.Flags.IsPrecondition && pass != PassPrecondition {
		return nil, nil
	}

	if err := e.checkCycle(desc); err != nil {
		return nil, err
	}

	run := &domain.CheckRun{
		Descriptor: desc,
		Parameters: chk.ParameterValues(),
		Scope:      scope,
		Status:     domain.StatusPending,
		StartedAt:  e.now(),
	}

	// Dependency resolution: outputs attached before dispatch.
	if len(desc.Dependencies) > 0 {
		if e.deps == nil {
			return nil, fmt.Errorf("check %s declares dependencies but no dependency runner is wired", desc.Identifier)
		}
		run.DependencyData = make(map[string]*domain.Table, len(desc.Dependencies))
		for _, dep := range desc.Dependencies {
			table, err := e.deps.RunDependency(ctx, dep, scope)
			if err != nil {
				run.Fail(fmt.Sprintf("dependency %s failed: %v", dep.CheckName, err))
				return run, nil
			}
			run.DependencyData[dep.CheckName] = table
		}
	}

	// Cache probe. Opt-out checks invalidate any stale entry first.
	key := e.Key(desc, scope)
	if !desc.Flags.CacheEnabled {
		if err := e.cache.Invalidate(key); err != nil {
			logger.Warn().Err(err).Msg("cache invalidation failed")
		}
		return run, nil
	}
	hit, err := e.cache.Lookup(logger, key)
	if err != nil {
		logger.Warn().Err(err).Msg("cache lookup failed, treating as miss")
	}
	if hit != nil {
		run.Data = hit.Data
		run.Status = domain.StatusCached
		run.FinishedAt = e.now()
		logger.Info().Time("stored_at", hit.StoredAt).Msg("served from cache")
	}
	return run, nil
}

// Finish records a dispatch outcome: validates the column contract,
// stores the result in cache, applies the post-processing hook.
func (e *Executor) Finish(ctx context.Context, run *domain.CheckRun, table *domain.Table, execIDs []string, dispatchErr error) {
	logger := zerolog.Ctx(ctx).With().Str("check", run.Descriptor.Identifier).Logger()
	run.ExecutionIDs = append(run.ExecutionIDs, execIDs...)

	if dispatchErr != nil {
		err := domain.CheckDispatchError{Identifier: run.Descriptor.Identifier, Err: dispatchErr}
		logger.Error().Err(err).Msg("check dispatch failed")
		run.Fail(err.Error())
		return
	}

	if err := table.Validate(run.Descriptor.ExpectedColumns); err != nil {
		dataErr := domain.CheckDataError{Identifier: run.Descriptor.Identifier, Reason: err.Error()}
		logger.Error().Err(dataErr).Msg("check returned unusable data")
		run.Fail(dataErr.Error())
		return
	}

	run.Data = table
	run.Status = domain.StatusSucceeded
	run.FinishedAt = e.now()

	if run.Descriptor.Flags.CacheEnabled {
		if err := e.cache.Put(e.Key(run.Descriptor, run.Scope), table); err != nil {
			logger.Warn().Err(err).Msg("failed to store cache entry")
		}
	}

	if chk, ok := e.registry.Check(run.Descriptor.Identifier); ok {
		if pp, ok := chk.(checks.PostProcessor); ok {
			if err := pp.PostProcess(run); err != nil {
				logger.Warn().Err(err).Msg("post-processing failed")
			}
		}
	}
}

// Savings computes the run's savings total: the check's own computation
// when it provides one, otherwise the sum of the canonical savings
// column.
func (e *Executor) Savings(run *domain.CheckRun) float64 {
	if run.Data == nil {
		return 0
	}
	if chk, ok := e.registry.Check(run.Descriptor.Identifier); ok {
		if sc, ok := chk.(checks.SavingsComputer); ok {
			return sc.ComputeSavings(run.Data)
		}
	}
	return run.Data.Sum(domain.SavingsColumn)
}

// checkCycle refuses checks whose transitive dependency closure loops.
func (e *Executor) checkCycle(desc domain.CheckDescriptor) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("dependency cycle through %s", id)
		case done:
			return nil
		}
		state[id] = visiting
		d, ok := e.registry.Descriptor(id)
		if ok {
			for _, dep := range d.Dependencies {
				if err := visit(dep.CheckName); err != nil {
					return err
				}
			}
		}
		state[id] = done
		return nil
	}

	if err := visit(desc.Identifier); err != nil {
		return fmt.Errorf("refusing to run %s: %w", desc.Identifier, err)
	}
	return nil
}
