// Package engine orchestrates a full run: provider selection from
// flags, check approval, the per-adapter auth/setup/run/fetch sequence
// and the final fan-in of succeeded and failed runs.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/registry"
)

// Flags is the provider and check selection parsed from the command
// line.
type Flags struct {
	CE  bool
	CO  bool
	TA  bool
	CUR bool

	// Checks bypasses interactive selection. The ALL token selects
	// every registered check.
	Checks []string

	// Region overrides the interactive region selection for
	// rightsizing.
	Region string
}

// Providers returns the enabled provider tags in canonical order.
func (f Flags) Providers() []string {
	var out []string
	for _, tag := range domain.ProviderOrder {
		switch tag {
		case domain.ProviderCE:
			if f.CE {
				out = append(out, tag)
			}
		case domain.ProviderCO:
			if f.CO {
				out = append(out, tag)
			}
		case domain.ProviderTA:
			if f.TA {
				out = append(out, tag)
			}
		case domain.ProviderCUR:
			if f.CUR {
				out = append(out, tag)
			}
		}
	}
	return out
}

// AdapterFactory builds one provider adapter wired to the shared
// executor.
type AdapterFactory func(exec *executor.Executor) provider.Adapter

// Result is the fan-in of one run.
type Result struct {
	Succeeded []*domain.CheckRun
	Failed    []*domain.CheckRun
	// SelectionErrors carries per-identifier approval problems, e.g.
	// a named check that does not exist. They do not fail the run.
	SelectionErrors []error
	Scope           domain.Scope
}

// GrandTotal sums the savings of every succeeded run.
func (r *Result) GrandTotal() float64 {
	var total float64
	for _, run := range r.Succeeded {
		total += run.Savings
	}
	return total
}

// Engine drives a single run end to end. One adapter at a time, one
// check at a time; every upstream call is synchronous from here.
type Engine struct {
	registry  *registry.Registry
	cfg       domain.Config
	flags     Flags
	factories map[string]AdapterFactory

	exec     *executor.Executor
	adapters map[string]provider.Adapter
	order    []string
	depMemo  map[string]*domain.Table
	scope    domain.Scope
}

// New assembles an engine. The factories map holds one adapter
// constructor per provider tag; only enabled providers are built.
func New(reg *registry.Registry, cfg domain.Config, flags Flags, factories map[string]AdapterFactory) *Engine {
	return &Engine{
		registry:  reg,
		cfg:       cfg,
		flags:     flags,
		factories: factories,
		adapters:  make(map[string]provider.Adapter),
		depMemo:   make(map[string]*domain.Table),
	}
}

// WireExecutor attaches the shared executor and builds the enabled
// adapters. The executor needs the engine as its dependency runner, so
// construction is two-step.
func (e *Engine) WireExecutor(exec *executor.Executor) error {
	e.exec = exec
	for _, tag := range e.flags.Providers() {
		factory, ok := e.factories[tag]
		if !ok {
			return fmt.Errorf("no adapter registered for provider %s", tag)
		}
		e.adapters[tag] = factory(exec)
		e.order = append(e.order, tag)
	}
	return nil
}

// Execute runs the full sequence: approve, then per adapter
// import/auth/setup, then run, fetch, savings, and collect. A single
// check failing never stops the run; adapter auth failures fail that
// adapter's checks only.
func (e *Engine) Execute(ctx context.Context, regionList []string) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	available, err := e.registry.Discover(ctx)
	if err != nil {
		return nil, err
	}

	if len(e.flags.Checks) == 0 {
		return nil, fmt.Errorf("no checks selected; pass --checks or pick from the menu")
	}
	approved, selectionErrs := e.registry.Approved(e.flags.Checks, available)
	for _, selErr := range selectionErrs {
		logger.Error().Err(selErr).Msg("check selection problem")
	}

	e.scope = domain.Scope{
		Accounts: []string{e.cfg.AccountID},
		Regions:  regionList,
		Customer: e.cfg.AccountID,
	}

	result := &Result{SelectionErrors: selectionErrs, Scope: e.scope}

	// Import, auth and set up every adapter before any check runs so
	// dependency resolution can reach a sibling adapter.
	ready := make(map[string]bool, len(e.order))
	for _, tag := range e.order {
		adapter := e.adapters[tag]
		if err := adapter.ImportChecks(approved); err != nil {
			return nil, fmt.Errorf("failed to import checks for %s: %w", tag, err)
		}
		if err := adapter.Auth(ctx); err != nil {
			logger.Error().Err(err).Str("provider", tag).Msg("provider authentication failed")
			adapter.FailAllImported(e.scope, err.Error())
			continue
		}
		if err := adapter.Setup(ctx, false); err != nil {
			logger.Error().Err(err).Str("provider", tag).Msg("provider setup failed")
			adapter.FailAllImported(e.scope, err.Error())
			continue
		}
		ready[tag] = true
	}

	for _, tag := range e.order {
		if !ready[tag] {
			continue
		}
		if _, err := e.adapters[tag].Run(ctx, e.scope, executor.PassMain); err != nil {
			return nil, fmt.Errorf("provider %s run failed: %w", tag, err)
		}
	}

	for _, tag := range e.order {
		if !ready[tag] {
			continue
		}
		if err := e.adapters[tag].FetchData(ctx); err != nil {
			return nil, fmt.Errorf("provider %s fetch failed: %w", tag, err)
		}
	}

	for _, tag := range e.order {
		if !ready[tag] {
			continue
		}
		if err := e.adapters[tag].CalculateSavings(ctx); err != nil {
			return nil, fmt.Errorf("provider %s savings calculation failed: %w", tag, err)
		}
	}

	for _, tag := range e.order {
		succeeded, failed := e.adapters[tag].Completed()
		for _, run := range succeeded {
			// Precondition outputs feed dependants only.
			if run.Descriptor.Flags.IsPrecondition {
				continue
			}
			result.Succeeded = append(result.Succeeded, run)
		}
		result.Failed = append(result.Failed, failed...)
	}

	logger.Info().
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Float64("grand_total", result.GrandTotal()).
		Msg("run complete")
	return result, nil
}

// RunDependency executes one dependency check through its provider's
// adapter, memoised for the run.
func (e *Engine) RunDependency(ctx context.Context, dep domain.CheckDependency, scope domain.Scope) (*domain.Table, error) {
	if table, ok := e.depMemo[dep.CheckName]; ok {
		return table, nil
	}

	desc, ok := e.registry.Descriptor(dep.CheckName)
	if !ok {
		return nil, domain.CheckNotFound{Identifier: dep.CheckName}
	}
	adapter, ok := e.adapters[desc.Provider]
	if !ok {
		return nil, fmt.Errorf("dependency %s needs provider %s, which is not enabled", dep.CheckName, desc.Provider)
	}

	pass := executor.PassMain
	if desc.Flags.IsPrecondition {
		pass = executor.PassPrecondition
	}
	run, err := adapter.RunOne(ctx, dep.CheckName, scope, pass)
	if err != nil {
		return nil, err
	}
	if !run.Succeeded() {
		return nil, fmt.Errorf("dependency %s finished %s: %s", dep.CheckName, run.Status, run.FailReason)
	}

	e.depMemo[dep.CheckName] = run.Data
	return run.Data, nil
}
