// Package ce adapts the cost-history upstream. Checks supply a query
// shape; the adapter translates it into month-grouped cost-and-usage
// requests and normalises the response into the expected columns.
package ce

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/awsconf"
)

// monthsBack is the default query window.
const monthsBack = 12

// CostExplorerAPI is the slice of the upstream client the adapter uses.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Adapter is the cost-history provider.
type Adapter struct {
	provider.Base
	cfg    domain.Config
	client CostExplorerAPI
	now    func() time.Time
}

// Option configures the adapter, used by tests to inject a client.
type Option func(*Adapter)

// WithClient injects an upstream client, skipping Auth's SDK setup.
func WithClient(client CostExplorerAPI) Option {
	return func(a *Adapter) { a.client = client }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New builds the adapter.
func New(exec *executor.Executor, lookup func(string) (checks.Check, bool), cfg domain.Config, opts ...Option) *Adapter {
	a := &Adapter{cfg: cfg, now: time.Now}
	a.Base = provider.NewBase(domain.ProviderCE, exec, lookup, a.dispatch)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Auth resolves SDK credentials and builds the client. No-op when a
// client was injected.
func (a *Adapter) Auth(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	awsCfg, err := awsconf.LoadConfig(ctx, a.cfg.Profile, awsconf.DefaultRegion)
	if err != nil {
		return domain.AuthError{Provider: domain.ProviderCE, Err: err}
	}
	a.client = costexplorer.NewFromConfig(*awsCfg)
	return nil
}

// Setup has no pre-flight work for cost history.
func (a *Adapter) Setup(_ context.Context, _ bool) error { return nil }

func (a *Adapter) dispatch(ctx context.Context, run *domain.CheckRun, chk checks.Check) (*domain.Table, []string, error) {
	ceChk, ok := chk.(checks.CECheck)
	if !ok {
		return nil, nil, fmt.Errorf("check %s does not produce a cost-history query", run.Descriptor.Identifier)
	}
	query := ceChk.Query()

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod:  a.window(),
		Granularity: types.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
	}
	if filter := a.filter(query.Inclusions); filter != nil {
		input.Filter = filter
	}
	if groupBy := a.groupBy(query.GroupBy); len(groupBy) > 0 {
		input.GroupBy = groupBy
	}

	out, err := a.client.GetCostAndUsage(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get cost and usage: %w", err)
	}

	table, err := a.normalise(run.Descriptor, query, out)
	if err != nil {
		return nil, nil, err
	}
	return table, nil, nil
}

// window builds the month-grouped query window: default the last 12
// complete months, optionally last month only or through today. Early
// in the month, before the configured cutoff day, the previous month's
// data is still settling and the window ends a month earlier.
func (a *Adapter) window() *types.DateInterval {
	now := a.now()
	boundary := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if a.cfg.DayOfMonthCutoff > 0 && now.Day() < a.cfg.DayOfMonthCutoff {
		boundary = boundary.AddDate(0, -1, 0)
	}

	end := boundary
	if a.cfg.IncludeCurrentMonth {
		end = now.AddDate(0, 0, 1)
	}

	start := boundary.AddDate(0, -monthsBack, 0)
	if a.cfg.LastMonthOnly {
		start = boundary.AddDate(0, -1, 0)
	}

	return &types.DateInterval{
		Start: aws.String(start.Format("2006-01-02")),
		End:   aws.String(end.Format("2006-01-02")),
	}
}

// filter excludes record types the query's inclusions leave out.
func (a *Adapter) filter(inc checks.CEInclusions) *types.Expression {
	var excluded []string
	for recordType, included := range map[string]bool{
		"Credit":  inc.Credits,
		"Refund":  inc.Refund,
		"Upfront": inc.Upfront,
		"Support": inc.Support,
		"Tax":     inc.Tax,
	} {
		if !included {
			excluded = append(excluded, recordType)
		}
	}
	if len(excluded) == 0 {
		return nil
	}
	sort.Strings(excluded)
	return &types.Expression{
		Not: &types.Expression{
			Dimensions: &types.DimensionValues{
				Key:    types.DimensionRecordType,
				Values: excluded,
			},
		},
	}
}

func (a *Adapter) groupBy(keys []string) []types.GroupDefinition {
	var out []types.GroupDefinition
	for _, key := range keys {
		if key == "TAG" {
			out = append(out, types.GroupDefinition{
				Type: types.GroupDefinitionTypeTag,
				Key:  aws.String(a.cfg.CETagKey),
			})
			continue
		}
		out = append(out, types.GroupDefinition{
			Type: types.GroupDefinitionTypeDimension,
			Key:  aws.String(key),
		})
	}
	return out
}

// normalise converts the upstream response into the check's expected
// columns: grouped queries yield one row per (month, group), change
// queries one row per month with the delta from the previous month.
func (a *Adapter) normalise(desc domain.CheckDescriptor, query checks.CEQuery, out *costexplorer.GetCostAndUsageOutput) (*domain.Table, error) {
	table := domain.NewTable(desc.ExpectedColumns...)

	if query.Style == checks.CEStyleChange {
		var previous float64
		for i, byTime := range out.ResultsByTime {
			month := aws.ToString(byTime.TimePeriod.Start)
			total := metricAmount(byTime.Total, "UnblendedCost")
			change := 0.0
			if i > 0 {
				change = total - previous
			}
			previous = total
			table.AddRow(month, formatAmount(total), formatAmount(change))
		}
		return table, nil
	}

	for _, byTime := range out.ResultsByTime {
		month := aws.ToString(byTime.TimePeriod.Start)
		if len(byTime.Groups) == 0 {
			total := metricAmount(byTime.Total, "UnblendedCost")
			table.AddRow(month, "", formatAmount(total))
			continue
		}
		for _, group := range byTime.Groups {
			key := ""
			if len(group.Keys) > 0 {
				key = group.Keys[0]
			}
			amount := metricAmount(group.Metrics, "UnblendedCost")
			table.AddRow(month, key, formatAmount(amount))
		}
	}
	return table, nil
}

func metricAmount(metrics map[string]types.MetricValue, name string) float64 {
	m, ok := metrics[name]
	if !ok || m.Amount == nil {
		return 0
	}
	v, err := strconv.ParseFloat(*m.Amount, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
