// Package co adapts the rightsizing upstream. Checks pick a
// recommendation family; the adapter pages through that family's
// recommendations in the selected region and normalises them into the
// shared row shape.
package co

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/computeoptimizer"
	"github.com/aws/aws-sdk-go-v2/service/computeoptimizer/types"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/awsconf"
)

// ComputeOptimizerAPI is the slice of the upstream client the adapter
// uses.
type ComputeOptimizerAPI interface {
	GetEC2InstanceRecommendations(ctx context.Context, params *computeoptimizer.GetEC2InstanceRecommendationsInput, optFns ...func(*computeoptimizer.Options)) (*computeoptimizer.GetEC2InstanceRecommendationsOutput, error)
	GetEBSVolumeRecommendations(ctx context.Context, params *computeoptimizer.GetEBSVolumeRecommendationsInput, optFns ...func(*computeoptimizer.Options)) (*computeoptimizer.GetEBSVolumeRecommendationsOutput, error)
	GetAutoScalingGroupRecommendations(ctx context.Context, params *computeoptimizer.GetAutoScalingGroupRecommendationsInput, optFns ...func(*computeoptimizer.Options)) (*computeoptimizer.GetAutoScalingGroupRecommendationsOutput, error)
}

// Adapter is the rightsizing provider. It is the only provider that
// honours the run's region selection instead of the fixed default.
type Adapter struct {
	provider.Base
	cfg    domain.Config
	client ComputeOptimizerAPI
}

// Option configures the adapter, used by tests to inject a client.
type Option func(*Adapter)

// WithClient injects an upstream client, skipping Auth's SDK setup.
func WithClient(client ComputeOptimizerAPI) Option {
	return func(a *Adapter) { a.client = client }
}

// New builds the adapter.
func New(exec *executor.Executor, lookup func(string) (checks.Check, bool), cfg domain.Config, opts ...Option) *Adapter {
	a := &Adapter{cfg: cfg}
	a.Base = provider.NewBase(domain.ProviderCO, exec, lookup, a.dispatch)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Auth resolves SDK credentials and builds the client.
func (a *Adapter) Auth(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	awsCfg, err := awsconf.LoadConfig(ctx, a.cfg.Profile, awsconf.DefaultRegion)
	if err != nil {
		return domain.AuthError{Provider: domain.ProviderCO, Err: err}
	}
	a.client = computeoptimizer.NewFromConfig(*awsCfg)
	return nil
}

// Setup has no pre-flight work for rightsizing.
func (a *Adapter) Setup(_ context.Context, _ bool) error { return nil }

func (a *Adapter) dispatch(ctx context.Context, run *domain.CheckRun, chk checks.Check) (*domain.Table, []string, error) {
	coChk, ok := chk.(checks.COCheck)
	if !ok {
		return nil, nil, fmt.Errorf("check %s does not select a recommendation family", run.Descriptor.Identifier)
	}
	if len(run.Scope.Regions) == 0 {
		return nil, nil, fmt.Errorf("rightsizing requires a region selection")
	}

	table := domain.NewTable(run.Descriptor.ExpectedColumns...)
	for _, region := range run.Scope.Regions {
		var err error
		switch coChk.Kind() {
		case checks.ROKindEC2:
			err = a.collectEC2(ctx, region, run.Scope.Accounts, table)
		case checks.ROKindEBS:
			err = a.collectEBS(ctx, region, run.Scope.Accounts, table)
		case checks.ROKindASG:
			err = a.collectASG(ctx, region, run.Scope.Accounts, table)
		default:
			err = fmt.Errorf("unknown recommendation family %q", coChk.Kind())
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return table, nil, nil
}

// inRegion pins one upstream call to the run's selected region.
func inRegion(region string) func(*computeoptimizer.Options) {
	return func(o *computeoptimizer.Options) { o.Region = region }
}

func (a *Adapter) collectEC2(ctx context.Context, region string, accounts []string, table *domain.Table) error {
	var nextToken *string
	for {
		out, err := a.client.GetEC2InstanceRecommendations(ctx, &computeoptimizer.GetEC2InstanceRecommendationsInput{
			AccountIds: accounts,
			NextToken:  nextToken,
		}, inRegion(region))
		if err != nil {
			return fmt.Errorf("failed to get instance recommendations in %s: %w", region, err)
		}
		for _, rec := range out.InstanceRecommendations {
			opt := bestInstanceOption(rec.RecommendationOptions)
			currency, savings := savingsOpportunity(optSavings(opt))
			table.AddRow(
				aws.ToString(rec.InstanceArn),
				aws.ToString(rec.CurrentInstanceType),
				aws.ToString(rec.InstanceName),
				optInstanceType(opt),
				string(rec.Finding),
				optMigrationEffort(opt),
				currency,
				savings,
			)
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return nil
}

func (a *Adapter) collectEBS(ctx context.Context, region string, accounts []string, table *domain.Table) error {
	var nextToken *string
	for {
		out, err := a.client.GetEBSVolumeRecommendations(ctx, &computeoptimizer.GetEBSVolumeRecommendationsInput{
			AccountIds: accounts,
			NextToken:  nextToken,
		}, inRegion(region))
		if err != nil {
			return fmt.Errorf("failed to get volume recommendations in %s: %w", region, err)
		}
		for _, rec := range out.VolumeRecommendations {
			current := ""
			if rec.CurrentConfiguration != nil {
				current = aws.ToString(rec.CurrentConfiguration.VolumeType)
			}
			recommended := ""
			var opp *types.SavingsOpportunity
			if len(rec.VolumeRecommendationOptions) > 0 {
				opt := rec.VolumeRecommendationOptions[0]
				if opt.Configuration != nil {
					recommended = aws.ToString(opt.Configuration.VolumeType)
				}
				opp = opt.SavingsOpportunity
			}
			currency, savings := savingsOpportunity(opp)
			table.AddRow(
				aws.ToString(rec.VolumeArn),
				current,
				"",
				recommended,
				string(rec.Finding),
				"",
				currency,
				savings,
			)
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return nil
}

func (a *Adapter) collectASG(ctx context.Context, region string, accounts []string, table *domain.Table) error {
	var nextToken *string
	for {
		out, err := a.client.GetAutoScalingGroupRecommendations(ctx, &computeoptimizer.GetAutoScalingGroupRecommendationsInput{
			AccountIds: accounts,
			NextToken:  nextToken,
		}, inRegion(region))
		if err != nil {
			return fmt.Errorf("failed to get scaling-group recommendations in %s: %w", region, err)
		}
		for _, rec := range out.AutoScalingGroupRecommendations {
			current := ""
			if rec.CurrentConfiguration != nil {
				current = aws.ToString(rec.CurrentConfiguration.InstanceType)
			}
			recommended := ""
			effort := ""
			var opp *types.SavingsOpportunity
			if len(rec.RecommendationOptions) > 0 {
				opt := rec.RecommendationOptions[0]
				if opt.Configuration != nil {
					recommended = aws.ToString(opt.Configuration.InstanceType)
				}
				effort = string(opt.MigrationEffort)
				opp = opt.SavingsOpportunity
			}
			currency, savings := savingsOpportunity(opp)
			table.AddRow(
				aws.ToString(rec.AutoScalingGroupArn),
				current,
				aws.ToString(rec.AutoScalingGroupName),
				recommended,
				string(rec.Finding),
				effort,
				currency,
				savings,
			)
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return nil
}

// bestInstanceOption picks the top-ranked recommendation option.
func bestInstanceOption(opts []types.InstanceRecommendationOption) *types.InstanceRecommendationOption {
	if len(opts) == 0 {
		return nil
	}
	best := &opts[0]
	for i := range opts[1:] {
		if opts[i+1].Rank < best.Rank {
			best = &opts[i+1]
		}
	}
	return best
}

func optInstanceType(opt *types.InstanceRecommendationOption) string {
	if opt == nil {
		return ""
	}
	return aws.ToString(opt.InstanceType)
}

func optMigrationEffort(opt *types.InstanceRecommendationOption) string {
	if opt == nil {
		return ""
	}
	return string(opt.MigrationEffort)
}

func optSavings(opt *types.InstanceRecommendationOption) *types.SavingsOpportunity {
	if opt == nil {
		return nil
	}
	return opt.SavingsOpportunity
}

// savingsOpportunity flattens the upstream savings figure into the row
// shape: currency code and a two-decimal amount.
func savingsOpportunity(opp *types.SavingsOpportunity) (currency, amount string) {
	if opp == nil || opp.EstimatedMonthlySavings == nil {
		return "", "0.00"
	}
	return string(opp.EstimatedMonthlySavings.Currency),
		strconv.FormatFloat(opp.EstimatedMonthlySavings.Value, 'f', 2, 64)
}
