package ta

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/support"
	"github.com/aws/aws-sdk-go-v2/service/support/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/catalog"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/registry"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/store/cache"
)

type fakeSupport struct {
	checks    []types.TrustedAdvisorCheckDescription
	results   map[string]*types.TrustedAdvisorCheckResult
	resultErr error
}

func (f *fakeSupport) DescribeTrustedAdvisorChecks(_ context.Context, _ *support.DescribeTrustedAdvisorChecksInput, _ ...func(*support.Options)) (*support.DescribeTrustedAdvisorChecksOutput, error) {
	return &support.DescribeTrustedAdvisorChecksOutput{Checks: f.checks}, nil
}

func (f *fakeSupport) DescribeTrustedAdvisorCheckResult(_ context.Context, params *support.DescribeTrustedAdvisorCheckResultInput, _ ...func(*support.Options)) (*support.DescribeTrustedAdvisorCheckResultOutput, error) {
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return &support.DescribeTrustedAdvisorCheckResultOutput{
		Result: f.results[aws.ToString(params.CheckId)],
	}, nil
}

type fixture struct {
	ctx     context.Context
	reg     *registry.Registry
	adapter *Adapter
	scope   domain.Scope
}

func setupFixture(t *testing.T, client SupportAPI) *fixture {
	t.Helper()

	reg := registry.New(catalog.Default())
	ctx := zerolog.Nop().WithContext(context.Background())
	_, err := reg.Discover(ctx)
	require.NoError(t, err)

	cacheStore, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := domain.Config{AccountID: "111122223333"}
	exec := executor.New(reg, cacheStore, cfg, nil)
	adapter := New(exec, reg.Check, cfg, WithClient(client))
	return &fixture{
		ctx:     ctx,
		reg:     reg,
		adapter: adapter,
		scope:   domain.Scope{Accounts: []string{"111122223333"}, Regions: []string{"us-east-1"}, Customer: "111122223333"},
	}
}

func advisorCatalogue() []types.TrustedAdvisorCheckDescription {
	return []types.TrustedAdvisorCheckDescription{
		{
			Id:       aws.String("hjLMh88uM8"),
			Name:     aws.String("Unassociated Elastic IP Addresses"),
			Category: aws.String("cost_optimizing"),
		},
		{
			Id:       aws.String("zXCkfM1nI3"),
			Name:     aws.String("IAM Use"),
			Category: aws.String("security"),
		},
	}
}

func approvedByID(t *testing.T, reg *registry.Registry, id string) []domain.CheckDescriptor {
	t.Helper()
	d, ok := reg.Descriptor(id)
	require.True(t, ok)
	return []domain.CheckDescriptor{d}
}

func TestAdapter_Lifecycle(t *testing.T) {
	t.Run("success - two flagged addresses priced at the reference rate", func(t *testing.T) {
		client := &fakeSupport{
			checks: advisorCatalogue(),
			results: map[string]*types.TrustedAdvisorCheckResult{
				"hjLMh88uM8": {
					Status: aws.String("warning"),
					FlaggedResources: []types.TrustedAdvisorResourceDetail{
						{Metadata: aws.StringSlice([]string{"us-east-1", "203.0.113.10"})},
						{Metadata: aws.StringSlice([]string{"us-east-1", "203.0.113.11"})},
						{Metadata: aws.StringSlice([]string{"us-east-1", "203.0.113.12"}), IsSuppressed: true},
					},
				},
			},
		}
		f := setupFixture(t, client)

		require.NoError(t, f.adapter.Setup(f.ctx, false))
		require.NoError(t, f.adapter.ImportChecks(approvedByID(t, f.reg, "ta_unassociatedelasticipaddresses")))

		_, err := f.adapter.Run(f.ctx, f.scope, executor.PassMain)
		require.NoError(t, err)
		require.NoError(t, f.adapter.FetchData(f.ctx))
		require.NoError(t, f.adapter.CalculateSavings(f.ctx))

		succeeded, failed := f.adapter.Completed()
		require.Len(t, succeeded, 1)
		assert.Empty(t, failed)

		run := succeeded[0]
		assert.Equal(t, 2, run.Data.Len())
		assert.InDelta(t, 7.20, run.Savings, 0.001)
		assert.Equal(t, []string{"hjLMh88uM8"}, run.ExecutionIDs)
	})

	t.Run("failure - advisor name missing from the catalogue", func(t *testing.T) {
		client := &fakeSupport{checks: advisorCatalogue()}
		f := setupFixture(t, client)

		require.NoError(t, f.adapter.Setup(f.ctx, false))
		require.NoError(t, f.adapter.ImportChecks(approvedByID(t, f.reg, "ta_idleloadbalancers")))

		_, err := f.adapter.Run(f.ctx, f.scope, executor.PassMain)
		require.NoError(t, err)
		require.NoError(t, f.adapter.FetchData(f.ctx))

		succeeded, failed := f.adapter.Completed()
		assert.Empty(t, succeeded)
		require.Len(t, failed, 1)
		assert.Contains(t, failed[0].FailReason, "not found in the cost-optimisation catalogue")
	})

	t.Run("failure - upstream error contained in the run", func(t *testing.T) {
		client := &fakeSupport{
			checks:    advisorCatalogue(),
			resultErr: errors.New("subscription required"),
		}
		f := setupFixture(t, client)

		require.NoError(t, f.adapter.Setup(f.ctx, false))
		require.NoError(t, f.adapter.ImportChecks(approvedByID(t, f.reg, "ta_unassociatedelasticipaddresses")))

		_, err := f.adapter.Run(f.ctx, f.scope, executor.PassMain)
		require.NoError(t, err)
		require.NoError(t, f.adapter.FetchData(f.ctx))

		succeeded, failed := f.adapter.Completed()
		assert.Empty(t, succeeded)
		require.Len(t, failed, 1)
		assert.Contains(t, failed[0].FailReason, "subscription required")
	})

	t.Run("success - auth failure fails all imported checks", func(t *testing.T) {
		f := setupFixture(t, &fakeSupport{checks: advisorCatalogue()})
		require.NoError(t, f.adapter.ImportChecks(approvedByID(t, f.reg, "ta_unassociatedelasticipaddresses")))

		f.adapter.FailAllImported(f.scope, "authentication failed")

		succeeded, failed := f.adapter.Completed()
		assert.Empty(t, succeeded)
		require.Len(t, failed, 1)
		assert.Equal(t, "authentication failed", failed[0].FailReason)
	})
}
