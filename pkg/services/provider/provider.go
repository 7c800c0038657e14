// Package provider defines the adapter contract every upstream data
// source implements, plus the shared run lifecycle.
package provider

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
)

// Adapter is the uniform facade over one upstream data source. Adapters
// are ephemeral: owned by the engine and scoped to a single run.
type Adapter interface {
	// Name returns the provider tag.
	Name() string
	// Auth acquires whatever session the upstream needs. A failure is
	// fatal to this adapter's checks, not to other adapters.
	Auth(ctx context.Context) error
	// Setup performs optional pre-flight work, e.g. warehouse schema
	// introspection.
	Setup(ctx context.Context, runValidation bool) error
	// ImportChecks loads the approved check instances for this provider.
	ImportChecks(approved []domain.CheckDescriptor) error
	// Imported returns the descriptors of the imported checks.
	Imported() []domain.CheckDescriptor
	// Run walks the pre-dispatch lifecycle for every imported check.
	Run(ctx context.Context, scope domain.Scope, pass executor.Pass) ([]*domain.CheckRun, error)
	// RunOne prepares and dispatches one check immediately, outside the
	// run collection. Dependency resolution uses it.
	RunOne(ctx context.Context, identifier string, scope domain.Scope, pass executor.Pass) (*domain.CheckRun, error)
	// FetchData dispatches the upstream calls for runs not already
	// satisfied from cache.
	FetchData(ctx context.Context) error
	// FailAllImported records a failed run for every imported check,
	// used when authentication or setup fails for the whole adapter.
	FailAllImported(scope domain.Scope, reason string)
	// CalculateSavings fills each successful run's savings total.
	CalculateSavings(ctx context.Context) error
	// Completed splits the adapter's runs into succeeded and failed.
	Completed() (succeeded, failed []*domain.CheckRun)
}

// DispatchFunc is one provider's upstream execution path. It returns
// the normalised table and opaque execution identifiers.
type DispatchFunc func(ctx context.Context, run *domain.CheckRun, chk checks.Check) (*domain.Table, []string, error)

// Base carries the lifecycle shared by all four adapters. Concrete
// adapters embed it and supply their dispatch path.
type Base struct {
	name     string
	exec     *executor.Executor
	lookup   func(identifier string) (checks.Check, bool)
	dispatch DispatchFunc

	imported []checks.Check
	runs     []*domain.CheckRun
}

// NewBase wires the shared lifecycle.
func NewBase(name string, exec *executor.Executor, lookup func(string) (checks.Check, bool), dispatch DispatchFunc) Base {
	return Base{name: name, exec: exec, lookup: lookup, dispatch: dispatch}
}

func (b *Base) Name() string { return b.name }

// ImportChecks keeps the approved checks belonging to this provider.
func (b *Base) ImportChecks(approved []domain.CheckDescriptor) error {
	b.imported = b.imported[:0]
	for _, desc := range approved {
		if desc.Provider != b.name {
			continue
		}
		chk, ok := b.lookup(desc.Identifier)
		if !ok {
			return domain.CheckNotFound{Identifier: desc.Identifier}
		}
		b.imported = append(b.imported, chk)
	}
	return nil
}

// Run prepares one CheckRun per imported check. Gated checks produce no
// run; a preparation error fails that run only.
func (b *Base) Run(ctx context.Context, scope domain.Scope, pass executor.Pass) ([]*domain.CheckRun, error) {
	logger := zerolog.Ctx(ctx)
	for _, chk := range b.imported {
		desc := chk.Descriptor()
		run, err := b.exec.Prepare(ctx, desc, scope, pass)
		if err != nil {
			logger.Error().Err(err).Str("check", desc.Identifier).Msg("check preparation failed")
			failed := &domain.CheckRun{Descriptor: desc, Scope: scope}
			failed.Fail(err.Error())
			b.runs = append(b.runs, failed)
			continue
		}
		if run == nil {
			continue
		}
		b.runs = append(b.runs, run)
	}
	return b.runs, nil
}

// RunOne prepares and dispatches a single check immediately, outside
// the run collection. Dependency resolution uses it.
func (b *Base) RunOne(ctx context.Context, identifier string, scope domain.Scope, pass executor.Pass) (*domain.CheckRun, error) {
	chk, ok := b.lookup(identifier)
	if !ok {
		return nil, domain.CheckNotFound{Identifier: identifier}
	}
	run, err := b.exec.Prepare(ctx, chk.Descriptor(), scope, pass)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("check %s is gated out of this pass", identifier)
	}
	if run.Status == domain.StatusPending {
		run.Status = domain.StatusRunning
		table, execIDs, dispatchErr := b.dispatch(ctx, run, chk)
		b.exec.Finish(ctx, run, table, execIDs, dispatchErr)
	}
	return run, nil
}

// Imported returns the descriptors of the imported checks.
func (b *Base) Imported() []domain.CheckDescriptor {
	out := make([]domain.CheckDescriptor, 0, len(b.imported))
	for _, chk := range b.imported {
		out = append(out, chk.Descriptor())
	}
	return out
}

// FetchData dispatches every run still pending.
func (b *Base) FetchData(ctx context.Context) error {
	for _, run := range b.runs {
		if run.Status != domain.StatusPending {
			continue
		}
		run.Status = domain.StatusRunning
		chk, _ := b.lookup(run.Descriptor.Identifier)
		table, execIDs, err := b.dispatch(ctx, run, chk)
		b.exec.Finish(ctx, run, table, execIDs, err)
	}
	return nil
}

// FailRemaining pushes every non-terminal run to FAILED with a shared
// reason, used when adapter authentication fails.
func (b *Base) FailRemaining(reason string) {
	for _, run := range b.runs {
		if !run.Status.Terminal() {
			run.Fail(reason)
		}
	}
}

// FailAllImported materialises a FAILED run for every imported check.
// Used when authentication fails before any run exists.
func (b *Base) FailAllImported(scope domain.Scope, reason string) {
	for _, chk := range b.imported {
		run := &domain.CheckRun{Descriptor: chk.Descriptor(), Scope: scope}
		run.Fail(reason)
		b.runs = append(b.runs, run)
	}
}

// CalculateSavings fills savings totals for successful runs.
func (b *Base) CalculateSavings(_ context.Context) error {
	for _, run := range b.runs {
		if run.Succeeded() {
			run.Savings = b.exec.Savings(run)
		}
	}
	return nil
}

// Completed splits terminal runs by outcome.
func (b *Base) Completed() (succeeded, failed []*domain.CheckRun) {
	for _, run := range b.runs {
		switch {
		case run.Succeeded():
			succeeded = append(succeeded, run)
		case run.Status == domain.StatusFailed:
			failed = append(failed, run)
		}
	}
	return succeeded, failed
}

// Runs exposes the adapter's run collection to the engine.
func (b *Base) Runs() []*domain.CheckRun { return b.runs }
