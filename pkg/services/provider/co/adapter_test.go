package co

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/computeoptimizer"
	"github.com/aws/aws-sdk-go-v2/service/computeoptimizer/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/catalog"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/registry"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/store/cache"
)

type fakeOptimizer struct {
	regions         []string
	recommendations []types.InstanceRecommendation
	volumes         []types.VolumeRecommendation
}

func (f *fakeOptimizer) recordRegion(optFns []func(*computeoptimizer.Options)) {
	opts := &computeoptimizer.Options{}
	for _, fn := range optFns {
		fn(opts)
	}
	f.regions = append(f.regions, opts.Region)
}

func (f *fakeOptimizer) GetEC2InstanceRecommendations(_ context.Context, _ *computeoptimizer.GetEC2InstanceRecommendationsInput, optFns ...func(*computeoptimizer.Options)) (*computeoptimizer.GetEC2InstanceRecommendationsOutput, error) {
	f.recordRegion(optFns)
	return &computeoptimizer.GetEC2InstanceRecommendationsOutput{InstanceRecommendations: f.recommendations}, nil
}

func (f *fakeOptimizer) GetEBSVolumeRecommendations(_ context.Context, _ *computeoptimizer.GetEBSVolumeRecommendationsInput, optFns ...func(*computeoptimizer.Options)) (*computeoptimizer.GetEBSVolumeRecommendationsOutput, error) {
	f.recordRegion(optFns)
	return &computeoptimizer.GetEBSVolumeRecommendationsOutput{VolumeRecommendations: f.volumes}, nil
}

func (f *fakeOptimizer) GetAutoScalingGroupRecommendations(_ context.Context, _ *computeoptimizer.GetAutoScalingGroupRecommendationsInput, optFns ...func(*computeoptimizer.Options)) (*computeoptimizer.GetAutoScalingGroupRecommendationsOutput, error) {
	f.recordRegion(optFns)
	return &computeoptimizer.GetAutoScalingGroupRecommendationsOutput{}, nil
}

func setupAdapter(t *testing.T, client ComputeOptimizerAPI) (*Adapter, *registry.Registry, context.Context) {
	t.Helper()

	reg := registry.New(catalog.Default())
	ctx := zerolog.Nop().WithContext(context.Background())
	_, err := reg.Discover(ctx)
	require.NoError(t, err)

	cacheStore, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := domain.Config{AccountID: "111122223333"}
	exec := executor.New(reg, cacheStore, cfg, nil)
	return New(exec, reg.Check, cfg, WithClient(client)), reg, ctx
}

func runCheck(t *testing.T, ctx context.Context, adapter *Adapter, reg *registry.Registry, id string, scope domain.Scope) *domain.CheckRun {
	t.Helper()

	d, ok := reg.Descriptor(id)
	require.True(t, ok)
	require.NoError(t, adapter.ImportChecks([]domain.CheckDescriptor{d}))

	_, err := adapter.Run(ctx, scope, executor.PassMain)
	require.NoError(t, err)
	require.NoError(t, adapter.FetchData(ctx))
	require.NoError(t, adapter.CalculateSavings(ctx))

	succeeded, failed := adapter.Completed()
	require.Empty(t, failed)
	require.Len(t, succeeded, 1)
	return succeeded[0]
}

func TestAdapter_Dispatch(t *testing.T) {
	scope := domain.Scope{
		Accounts: []string{"111122223333"},
		Regions:  []string{"eu-west-1"},
		Customer: "111122223333",
	}

	t.Run("success - queries run against the selected region", func(t *testing.T) {
		client := &fakeOptimizer{}
		adapter, reg, ctx := setupAdapter(t, client)

		runCheck(t, ctx, adapter, reg, "co_ec2rightsizing", scope)
		assert.Equal(t, []string{"eu-west-1"}, client.regions)
	})

	t.Run("success - instance recommendation normalised with savings", func(t *testing.T) {
		client := &fakeOptimizer{
			recommendations: []types.InstanceRecommendation{{
				InstanceArn:         aws.String("arn:aws:ec2:eu-west-1:111122223333:instance/i-0abc"),
				InstanceName:        aws.String("batch-worker"),
				CurrentInstanceType: aws.String("m5.2xlarge"),
				Finding:             types.FindingOverProvisioned,
				RecommendationOptions: []types.InstanceRecommendationOption{{
					InstanceType:    aws.String("m5.xlarge"),
					MigrationEffort: types.MigrationEffortLow,
					Rank:            1,
					SavingsOpportunity: &types.SavingsOpportunity{
						EstimatedMonthlySavings: &types.EstimatedMonthlySavings{
							Currency: types.CurrencyUsd,
							Value:    57.60,
						},
					},
				}},
			}},
		}
		adapter, reg, ctx := setupAdapter(t, client)
		run := runCheck(t, ctx, adapter, reg, "co_ec2rightsizing", scope)

		require.Equal(t, 1, run.Data.Len())
		row := run.Data.Rows[0]
		assert.Equal(t, "arn:aws:ec2:eu-west-1:111122223333:instance/i-0abc", row[0])
		assert.Equal(t, "m5.2xlarge", row[1])
		assert.Equal(t, "batch-worker", row[2])
		assert.Equal(t, "m5.xlarge", row[3])
		assert.Equal(t, string(types.FindingOverProvisioned), row[4])
		assert.Equal(t, "57.60", row[len(row)-1])
		assert.InDelta(t, 57.60, run.Savings, 0.001)
	})

	t.Run("success - volume recommendation without options still rows", func(t *testing.T) {
		client := &fakeOptimizer{
			volumes: []types.VolumeRecommendation{{
				VolumeArn: aws.String("arn:aws:ec2:eu-west-1:111122223333:volume/vol-0abc"),
				Finding:   types.EBSFindingNotOptimized,
			}},
		}
		adapter, reg, ctx := setupAdapter(t, client)
		run := runCheck(t, ctx, adapter, reg, "co_ebsoptimization", scope)

		require.Equal(t, 1, run.Data.Len())
		assert.Equal(t, "0.00", run.Data.Rows[0][len(run.Data.Rows[0])-1])
		assert.Zero(t, run.Savings)
	})

	t.Run("failure - missing region selection fails the run", func(t *testing.T) {
		adapter, reg, ctx := setupAdapter(t, &fakeOptimizer{})
		d, ok := reg.Descriptor("co_ec2rightsizing")
		require.True(t, ok)
		require.NoError(t, adapter.ImportChecks([]domain.CheckDescriptor{d}))

		noRegion := domain.Scope{Accounts: []string{"111122223333"}, Customer: "111122223333"}
		_, err := adapter.Run(ctx, noRegion, executor.PassMain)
		require.NoError(t, err)
		require.NoError(t, adapter.FetchData(ctx))

		succeeded, failed := adapter.Completed()
		assert.Empty(t, succeeded)
		require.Len(t, failed, 1)
		assert.Contains(t, failed[0].FailReason, "region")
	})
}
