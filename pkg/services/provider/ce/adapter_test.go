package ce

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/catalog"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/registry"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/store/cache"
)

type fakeCostExplorer struct {
	lastInput *costexplorer.GetCostAndUsageInput
	output    *costexplorer.GetCostAndUsageOutput
}

func (f *fakeCostExplorer) GetCostAndUsage(_ context.Context, params *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.lastInput = params
	return f.output, nil
}

func monthResult(month, total string, groups ...types.Group) types.ResultByTime {
	end := month
	return types.ResultByTime{
		TimePeriod: &types.DateInterval{Start: aws.String(month), End: aws.String(end)},
		Total: map[string]types.MetricValue{
			"UnblendedCost": {Amount: aws.String(total), Unit: aws.String("USD")},
		},
		Groups: groups,
	}
}

func setupAdapter(t *testing.T, cfg domain.Config, client CostExplorerAPI) (*Adapter, *registry.Registry, context.Context) {
	t.Helper()

	reg := registry.New(catalog.Default())
	ctx := zerolog.Nop().WithContext(context.Background())
	_, err := reg.Discover(ctx)
	require.NoError(t, err)

	cacheStore, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	exec := executor.New(reg, cacheStore, cfg, nil)
	clock := func() time.Time { return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC) }
	return New(exec, reg.Check, cfg, WithClient(client), WithClock(clock)), reg, ctx
}

func setupAdapterAt(t *testing.T, cfg domain.Config, client CostExplorerAPI, now time.Time) (*Adapter, *registry.Registry, context.Context) {
	t.Helper()
	adapter, reg, ctx := setupAdapter(t, cfg, client)
	WithClock(func() time.Time { return now })(adapter)
	return adapter, reg, ctx
}

func scope() domain.Scope {
	return domain.Scope{Accounts: []string{"111122223333"}, Regions: []string{"us-east-1"}, Customer: "111122223333"}
}

func TestAdapter_Window(t *testing.T) {
	client := &fakeCostExplorer{output: &costexplorer.GetCostAndUsageOutput{}}

	t.Run("success - default window is the last 12 complete months", func(t *testing.T) {
		adapter, reg, ctx := setupAdapter(t, domain.Config{}, client)
		runCheck(t, ctx, adapter, reg, "ce_totalchange")

		require.NotNil(t, client.lastInput)
		assert.Equal(t, "2025-08-01", aws.ToString(client.lastInput.TimePeriod.Start))
		assert.Equal(t, "2026-08-01", aws.ToString(client.lastInput.TimePeriod.End))
	})

	t.Run("success - last month only shrinks the window", func(t *testing.T) {
		adapter, reg, ctx := setupAdapter(t, domain.Config{LastMonthOnly: true}, client)
		runCheck(t, ctx, adapter, reg, "ce_totalchange")

		assert.Equal(t, "2026-07-01", aws.ToString(client.lastInput.TimePeriod.Start))
		assert.Equal(t, "2026-08-01", aws.ToString(client.lastInput.TimePeriod.End))
	})

	t.Run("success - current month extends the end", func(t *testing.T) {
		adapter, reg, ctx := setupAdapter(t, domain.Config{IncludeCurrentMonth: true}, client)
		runCheck(t, ctx, adapter, reg, "ce_totalchange")

		assert.Equal(t, "2026-08-16", aws.ToString(client.lastInput.TimePeriod.End))
	})

	t.Run("success - before the cutoff day the window ends a month earlier", func(t *testing.T) {
		adapter, reg, ctx := setupAdapterAt(t, domain.Config{DayOfMonthCutoff: 5}, client,
			time.Date(2026, time.August, 3, 12, 0, 0, 0, time.UTC))
		runCheck(t, ctx, adapter, reg, "ce_totalchange")

		assert.Equal(t, "2025-07-01", aws.ToString(client.lastInput.TimePeriod.Start))
		assert.Equal(t, "2026-07-01", aws.ToString(client.lastInput.TimePeriod.End))
	})

	t.Run("success - on or past the cutoff day the window is unchanged", func(t *testing.T) {
		adapter, reg, ctx := setupAdapterAt(t, domain.Config{DayOfMonthCutoff: 5}, client,
			time.Date(2026, time.August, 5, 12, 0, 0, 0, time.UTC))
		runCheck(t, ctx, adapter, reg, "ce_totalchange")

		assert.Equal(t, "2025-08-01", aws.ToString(client.lastInput.TimePeriod.Start))
		assert.Equal(t, "2026-08-01", aws.ToString(client.lastInput.TimePeriod.End))
	})
}

func TestAdapter_Normalise(t *testing.T) {
	t.Run("success - change query computes month deltas", func(t *testing.T) {
		client := &fakeCostExplorer{output: &costexplorer.GetCostAndUsageOutput{
			ResultsByTime: []types.ResultByTime{
				monthResult("2026-06-01", "100.00"),
				monthResult("2026-07-01", "140.50"),
			},
		}}
		adapter, reg, ctx := setupAdapter(t, domain.Config{}, client)
		run := runCheck(t, ctx, adapter, reg, "ce_totalchange")

		require.Equal(t, 2, run.Data.Len())
		assert.Equal(t, []string{"2026-06-01", "100.00", "0.00"}, run.Data.Rows[0])
		assert.Equal(t, []string{"2026-07-01", "140.50", "40.50"}, run.Data.Rows[1])
	})

	t.Run("success - grouped query yields one row per group and month", func(t *testing.T) {
		client := &fakeCostExplorer{output: &costexplorer.GetCostAndUsageOutput{
			ResultsByTime: []types.ResultByTime{
				monthResult("2026-07-01", "0",
					types.Group{Keys: []string{"Amazon EC2"}, Metrics: map[string]types.MetricValue{
						"UnblendedCost": {Amount: aws.String("80.25")},
					}},
					types.Group{Keys: []string{"Amazon S3"}, Metrics: map[string]types.MetricValue{
						"UnblendedCost": {Amount: aws.String("19.75")},
					}},
				),
			},
		}}
		adapter, reg, ctx := setupAdapter(t, domain.Config{}, client)
		run := runCheck(t, ctx, adapter, reg, "ce_servicespend")

		require.Equal(t, 2, run.Data.Len())
		assert.Equal(t, []string{"2026-07-01", "Amazon EC2", "80.25"}, run.Data.Rows[0])
		assert.Equal(t, []string{"2026-07-01", "Amazon S3", "19.75"}, run.Data.Rows[1])
		assert.Zero(t, run.Savings)
	})

	t.Run("success - excluded record types land in the filter", func(t *testing.T) {
		client := &fakeCostExplorer{output: &costexplorer.GetCostAndUsageOutput{}}
		adapter, reg, ctx := setupAdapter(t, domain.Config{}, client)
		runCheck(t, ctx, adapter, reg, "ce_servicespend")

		require.NotNil(t, client.lastInput.Filter)
		require.NotNil(t, client.lastInput.Filter.Not)
		values := client.lastInput.Filter.Not.Dimensions.Values
		assert.ElementsMatch(t, []string{"Credit", "Refund"}, values)
	})

	t.Run("success - tag grouping uses the configured key", func(t *testing.T) {
		client := &fakeCostExplorer{output: &costexplorer.GetCostAndUsageOutput{}}
		adapter, reg, ctx := setupAdapter(t, domain.Config{CETagKey: "team"}, client)
		runCheck(t, ctx, adapter, reg, "ce_taggedspend")

		require.Len(t, client.lastInput.GroupBy, 1)
		assert.Equal(t, types.GroupDefinitionTypeTag, client.lastInput.GroupBy[0].Type)
		assert.Equal(t, "team", aws.ToString(client.lastInput.GroupBy[0].Key))
	})
}

func runCheck(t *testing.T, ctx context.Context, adapter *Adapter, reg *registry.Registry, id string) *domain.CheckRun {
	t.Helper()

	d, ok := reg.Descriptor(id)
	require.True(t, ok)
	require.NoError(t, adapter.ImportChecks([]domain.CheckDescriptor{d}))

	_, err := adapter.Run(ctx, scope(), executor.PassMain)
	require.NoError(t, err)
	require.NoError(t, adapter.FetchData(ctx))
	require.NoError(t, adapter.CalculateSavings(ctx))

	succeeded, failed := adapter.Completed()
	require.Empty(t, failed)
	require.Len(t, succeeded, 1)
	return succeeded[0]
}
