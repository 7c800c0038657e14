package cur

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// ElastiCacheUsage reports node-hour spend per cache cluster. Disabled:
// the reserved-node comparison it needs is not implemented yet, so the
// check registers but never runs.
type ElastiCacheUsage struct {
	checks.Base
}

func NewElastiCacheUsage() (checks.Check, error) {
	return &ElastiCacheUsage{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier: "cur_elasticacheusage",
		CommonName: "ElastiCache Usage",
		Provider:   domain.ProviderCUR,
		Domain:     domain.DomainDatabase,
		Service:    "ElastiCache",
		ExpectedColumns: []string{
			"Resource_Id", "Account_Id", "Node_Type", "Node_Hours", "Cost", domain.SavingsColumn,
		},
		Authors: []string{"costminimizer"},
		Flags: domain.CheckFlags{
			Disabled:     true,
			CacheEnabled: true,
		},
		Dependencies: []domain.CheckDependency{
			{Provider: domain.ProviderCUR, CheckName: "cur_curversion"},
		},
		Description: "On-demand cache node hours per cluster. Disabled pending the " +
			"reserved-node price comparison.",
	})}, nil
}

func (c *ElastiCacheUsage) SQL(p checks.SQLParams) string {
	return fmt.Sprintf(`select
	%s,
	%s as account_id,
	product_instance_type as node_type,
	cast(round(sum(line_item_usage_amount), 2) as varchar) as node_hours,
	cast(round(sum(%s), 2) as varchar) as cost,
	cast(round(sum(%s) * 0.30, 2) as varchar) as estimated_monthly_savings
from %s
where line_item_product_code = 'AmazonElastiCache'
	and line_item_line_item_type = 'Usage'
	and %s
group by 2, product_instance_type%s
order by 5 desc`,
		resourceIDSelect(p), usageAccount(p), unblendedCost(p), unblendedCost(p),
		p.DatabaseTable, whereScope(p), resourceIDGroupBy(p))
}
