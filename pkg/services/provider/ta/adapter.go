// Package ta adapts the advisor upstream. Setup resolves each check's
// advisor id from the cost-optimisation catalogue by common name; the
// dispatch fetches flagged resources and hands the raw metadata tuples
// to the check for normalisation.
package ta

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/support"
	"github.com/rs/zerolog"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/awsconf"
)

const (
	// The support API is only served from us-east-1.
	supportRegion = awsconf.DefaultRegion

	language = "en"

	costOptimizingCategory = "cost_optimizing"
)

// SupportAPI is the slice of the upstream client the adapter uses.
type SupportAPI interface {
	DescribeTrustedAdvisorChecks(ctx context.Context, params *support.DescribeTrustedAdvisorChecksInput, optFns ...func(*support.Options)) (*support.DescribeTrustedAdvisorChecksOutput, error)
	DescribeTrustedAdvisorCheckResult(ctx context.Context, params *support.DescribeTrustedAdvisorCheckResultInput, optFns ...func(*support.Options)) (*support.DescribeTrustedAdvisorCheckResultOutput, error)
}

// Adapter is the advisor provider.
type Adapter struct {
	provider.Base
	cfg     domain.Config
	client  SupportAPI
	checkID map[string]string
}

// Option configures the adapter, used by tests to inject a client.
type Option func(*Adapter)

// WithClient injects an upstream client, skipping Auth's SDK setup.
func WithClient(client SupportAPI) Option {
	return func(a *Adapter) { a.client = client }
}

// New builds the adapter.
func New(exec *executor.Executor, lookup func(string) (checks.Check, bool), cfg domain.Config, opts ...Option) *Adapter {
	a := &Adapter{cfg: cfg}
	a.Base = provider.NewBase(domain.ProviderTA, exec, lookup, a.dispatch)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Auth resolves SDK credentials and builds the client. The support API
// needs a Business or Enterprise plan; without one the first call in
// Setup fails with a subscription error.
func (a *Adapter) Auth(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	awsCfg, err := awsconf.LoadConfig(ctx, a.cfg.Profile, supportRegion)
	if err != nil {
		return domain.AuthError{Provider: domain.ProviderTA, Err: err}
	}
	a.client = support.NewFromConfig(*awsCfg)
	return nil
}

// Setup builds the common-name to advisor-id lookup from the
// cost-optimisation catalogue.
func (a *Adapter) Setup(ctx context.Context, _ bool) error {
	out, err := a.client.DescribeTrustedAdvisorChecks(ctx, &support.DescribeTrustedAdvisorChecksInput{
		Language: aws.String(language),
	})
	if err != nil {
		return fmt.Errorf("failed to list advisor checks: %w", err)
	}
	a.checkID = make(map[string]string, len(out.Checks))
	for _, c := range out.Checks {
		if aws.ToString(c.Category) != costOptimizingCategory {
			continue
		}
		a.checkID[aws.ToString(c.Name)] = aws.ToString(c.Id)
	}
	return nil
}

func (a *Adapter) dispatch(ctx context.Context, run *domain.CheckRun, chk checks.Check) (*domain.Table, []string, error) {
	taChk, ok := chk.(checks.TACheck)
	if !ok {
		return nil, nil, fmt.Errorf("check %s does not name an advisor check", run.Descriptor.Identifier)
	}

	id, ok := a.checkID[taChk.AdvisorName()]
	if !ok {
		return nil, nil, fmt.Errorf("advisor check %q not found in the cost-optimisation catalogue", taChk.AdvisorName())
	}

	out, err := a.client.DescribeTrustedAdvisorCheckResult(ctx, &support.DescribeTrustedAdvisorCheckResultInput{
		CheckId:  aws.String(id),
		Language: aws.String(language),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch advisor result for %q: %w", taChk.AdvisorName(), err)
	}
	if out.Result == nil {
		return nil, nil, fmt.Errorf("advisor returned no result for %q", taChk.AdvisorName())
	}

	var meta [][]string
	for _, res := range out.Result.FlaggedResources {
		if res.IsSuppressed {
			continue
		}
		meta = append(meta, aws.ToStringSlice(res.Metadata))
	}

	table := taChk.Rows(meta)
	a.warnUnparsedSavings(ctx, run.Descriptor.Identifier, table)
	return table, []string{id}, nil
}

// warnUnparsedSavings scans the savings column for cells that do not
// coerce to a money amount. Advisor metadata is free-form, so a bad
// cell is logged and left in place; the totaliser skips it.
func (a *Adapter) warnUnparsedSavings(ctx context.Context, identifier string, table *domain.Table) {
	idx := table.ColumnIndex(domain.SavingsColumn)
	if idx < 0 {
		return
	}
	logger := zerolog.Ctx(ctx)
	for _, row := range table.Rows {
		cell := row[idx]
		if cell == "" {
			continue
		}
		if _, ok := domain.ParseMoney(cell); !ok {
			logger.Warn().
				Str("check", identifier).
				Str("value", cell).
				Msg("advisor savings cell is not a money amount, skipping in totals")
		}
	}
}
