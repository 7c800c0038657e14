// Package cur adapts the warehouse upstream. Checks emit SQL templates;
// the adapter fills the template parameters from a one-time schema
// introspection, runs the query synchronously through Athena and pages
// the result set into a table.
package cur

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
	curchecks "github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/cur"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/awsconf"
)

const defaultPollInterval = time.Second

// AthenaAPI is the slice of the upstream client the adapter uses.
type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Adapter is the warehouse provider.
type Adapter struct {
	provider.Base
	cfg          domain.Config
	client       AthenaAPI
	pollInterval time.Duration
	now          func() time.Time

	introspected  bool
	schemaVersion string
	hasResourceID bool
}

// Option configures the adapter, used by tests to inject a client and
// shrink the poll interval.
type Option func(*Adapter)

// WithClient injects an upstream client, skipping Auth's SDK setup.
func WithClient(client AthenaAPI) Option {
	return func(a *Adapter) { a.client = client }
}

// WithPollInterval overrides the query-state poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(a *Adapter) { a.pollInterval = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New builds the adapter.
func New(exec *executor.Executor, lookup func(string) (checks.Check, bool), cfg domain.Config, opts ...Option) *Adapter {
	a := &Adapter{cfg: cfg, pollInterval: defaultPollInterval, now: time.Now}
	a.Base = provider.NewBase(domain.ProviderCUR, exec, lookup, a.dispatch)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Auth checks the warehouse coordinates and builds the client.
func (a *Adapter) Auth(ctx context.Context) error {
	if a.cfg.CURDatabase == "" || a.cfg.CURTable == "" {
		return domain.AuthError{
			Provider: domain.ProviderCUR,
			Err:      domain.ConfigMissing{What: "cur database/table"},
		}
	}
	if a.client != nil {
		return nil
	}
	region := a.cfg.CURRegion
	if region == "" {
		region = awsconf.DefaultRegion
	}
	awsCfg, err := awsconf.LoadConfig(ctx, a.cfg.Profile, region)
	if err != nil {
		return domain.AuthError{Provider: domain.ProviderCUR, Err: err}
	}
	a.client = athena.NewFromConfig(*awsCfg)
	return nil
}

// Setup introspects the table schema once: the CUR dialect and whether
// line_item_resource_id exists. force repeats the introspection.
func (a *Adapter) Setup(ctx context.Context, force bool) error {
	if a.introspected && !force {
		return nil
	}
	query := fmt.Sprintf(
		"select column_name from information_schema.columns where table_schema = '%s' and table_name = '%s'",
		a.cfg.CURDatabase, a.cfg.CURTable)

	rows, _, err := a.runQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to introspect table schema: %w", err)
	}

	columns := make(map[string]bool, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			columns[strings.ToLower(row[0])] = true
		}
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s.%s has no columns visible, check the warehouse configuration",
			a.cfg.CURDatabase, a.cfg.CURTable)
	}

	switch {
	case columns["billedcost"]:
		a.schemaVersion = curchecks.DialectFocus
	case columns["product"]:
		a.schemaVersion = curchecks.DialectV2
	default:
		a.schemaVersion = curchecks.DialectLegacy
	}
	a.hasResourceID = columns["line_item_resource_id"]
	a.introspected = true
	return nil
}

// SchemaVersion returns the detected dialect, empty before Setup.
func (a *Adapter) SchemaVersion() string { return a.schemaVersion }

func (a *Adapter) dispatch(ctx context.Context, run *domain.CheckRun, chk checks.Check) (*domain.Table, []string, error) {
	curChk, ok := chk.(checks.CURCheck)
	if !ok {
		return nil, nil, fmt.Errorf("check %s does not emit a warehouse query", run.Descriptor.Identifier)
	}
	if !a.introspected {
		return nil, nil, fmt.Errorf("warehouse schema not introspected")
	}

	params := a.sqlParams(run)
	rows, executionID, err := a.runQuery(ctx, curChk.SQL(params))
	if err != nil {
		return nil, nil, err
	}

	table := domain.NewTable(run.Descriptor.ExpectedColumns...)
	for _, row := range rows {
		table.AddRow(row...)
	}
	return table, []string{executionID}, nil
}

// sqlParams fills the template parameters for one run.
func (a *Adapter) sqlParams(run *domain.CheckRun) checks.SQLParams {
	region := a.cfg.CURRegion
	if len(run.Scope.Regions) > 0 {
		region = run.Scope.Regions[0]
	}
	return checks.SQLParams{
		DatabaseTable: a.cfg.CURDatabase + "." + a.cfg.CURTable,
		PayerID:       a.cfg.AccountID,
		AccountFilter: a.accountFilter(run.Scope.Accounts),
		Region:        region,
		MaxDate:       a.maxDate(run),
		SchemaVersion: a.schemaVersion,
		HasResourceID: a.hasResourceID,
	}
}

// accountFilter builds the splice-ready account clause, empty when all
// accounts are in scope.
func (a *Adapter) accountFilter(accounts []string) string {
	if len(accounts) == 0 {
		return ""
	}
	column := "line_item_usage_account_id"
	if a.schemaVersion == curchecks.DialectFocus {
		column = "subaccountid"
	}
	quoted := make([]string, 0, len(accounts))
	for _, id := range accounts {
		quoted = append(quoted, "'"+id+"'")
	}
	sort.Strings(quoted)
	return fmt.Sprintf("%s in (%s)", column, strings.Join(quoted, ", "))
}

// maxDate picks the query window's upper bound: the freshness
// precondition's observed maximum when present, otherwise yesterday,
// clipped to the end of the previous month when last-month-only is set.
func (a *Adapter) maxDate(run *domain.CheckRun) string {
	if dep, ok := run.DependencyData["cur_curversion"]; ok {
		idx := dep.ColumnIndex("Max_Date")
		if idx >= 0 && dep.Len() > 0 {
			if cell := dep.Rows[0][idx]; len(cell) >= 10 {
				return cell[:10]
			}
		}
	}
	now := a.now().UTC()
	if a.cfg.LastMonthOnly {
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		// Before the cutoff day the previous month is still settling.
		if a.cfg.DayOfMonthCutoff > 0 && now.Day() < a.cfg.DayOfMonthCutoff {
			firstOfMonth = firstOfMonth.AddDate(0, -1, 0)
		}
		return firstOfMonth.AddDate(0, 0, -1).Format("2006-01-02")
	}
	return now.AddDate(0, 0, -1).Format("2006-01-02")
}

// runQuery starts a query, polls its state at the poll interval until
// terminal and pages the result set. The returned rows exclude the
// header row.
func (a *Adapter) runQuery(ctx context.Context, query string) ([][]string, string, error) {
	input := &athena.StartQueryExecutionInput{
		QueryString: aws.String(query),
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: aws.String(a.cfg.CURDatabase),
		},
	}
	if a.cfg.StagingBucket != "" {
		input.ResultConfiguration = &types.ResultConfiguration{
			OutputLocation: aws.String(fmt.Sprintf("s3://%s/athena-results/", a.cfg.StagingBucket)),
		}
	}

	started, err := a.client.StartQueryExecution(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start warehouse query: %w", err)
	}
	executionID := aws.ToString(started.QueryExecutionId)

	if err := a.awaitQuery(ctx, executionID); err != nil {
		return nil, executionID, err
	}

	rows, err := a.fetchResults(ctx, executionID)
	if err != nil {
		return nil, executionID, err
	}
	return rows, executionID, nil
}

func (a *Adapter) awaitQuery(ctx context.Context, executionID string) error {
	for {
		out, err := a.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(executionID),
		})
		if err != nil {
			return fmt.Errorf("failed to poll query %s: %w", executionID, err)
		}

		var state types.QueryExecutionState
		var reason string
		if out.QueryExecution != nil && out.QueryExecution.Status != nil {
			state = out.QueryExecution.Status.State
			reason = aws.ToString(out.QueryExecution.Status.StateChangeReason)
		}

		switch state {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			return fmt.Errorf("query %s finished %s: %s", executionID, state, reason)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}

func (a *Adapter) fetchResults(ctx context.Context, executionID string) ([][]string, error) {
	var rows [][]string
	var nextToken *string
	first := true
	for {
		out, err := a.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
			QueryExecutionId: aws.String(executionID),
			NextToken:        nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch results for query %s: %w", executionID, err)
		}
		if out.ResultSet != nil {
			for _, row := range out.ResultSet.Rows {
				if first {
					// The first row of the first page is the header.
					first = false
					continue
				}
				cells := make([]string, 0, len(row.Data))
				for _, datum := range row.Data {
					cells = append(cells, aws.ToString(datum.VarCharValue))
				}
				rows = append(rows, cells)
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return rows, nil
}
