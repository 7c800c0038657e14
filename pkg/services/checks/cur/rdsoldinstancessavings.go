package cur

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// RDSOldInstancesSavings finds spend on previous-generation RDS
// instance families.
//
// Its savings figure sums the cost column rather than an explicit
// savings estimate, which overstates the saving (a newer family is
// cheaper, not free). The aggregator flags this basis; the number is
// reported as-is.
type RDSOldInstancesSavings struct {
	checks.Base
}

func NewRDSOldInstancesSavings() (checks.Check, error) {
	return &RDSOldInstancesSavings{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier: "cur_rdsoldinstancessavings",
		CommonName: "RDS Previous Generation Instances",
		Provider:   domain.ProviderCUR,
		Domain:     domain.DomainDatabase,
		Service:    "RDS",
		ExpectedColumns: []string{
			"Resource_Id", "Account_Id", "Instance_Type", "Cost",
		},
		Authors: []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Dependencies: []domain.CheckDependency{
			{Provider: domain.ProviderCUR, CheckName: "cur_curversion"},
		},
		Description: "RDS usage on previous-generation instance families (m3, m4, " +
			"r3, r4, t2). Savings basis is the full cost of the flagged instances.",
	})}, nil
}

func (c *RDSOldInstancesSavings) SQL(p checks.SQLParams) string {
	return fmt.Sprintf(`select
	%s,
	%s as account_id,
	product_instance_type as instance_type,
	cast(round(sum(%s), 2) as varchar) as cost
from %s
where line_item_product_code = 'AmazonRDS'
	and line_item_line_item_type = 'Usage'
	and (product_instance_type like 'db.m3.%%'
		or product_instance_type like 'db.m4.%%'
		or product_instance_type like 'db.r3.%%'
		or product_instance_type like 'db.r4.%%'
		or product_instance_type like 'db.t2.%%')
	and %s
group by 2, product_instance_type%s
order by 4 desc`,
		resourceIDSelect(p), usageAccount(p), unblendedCost(p),
		p.DatabaseTable, whereScope(p), resourceIDGroupBy(p))
}

// ComputeSavings sums the cost column. The basis overstates the
// saving; the aggregator flags it and reports the number unchanged.
func (c *RDSOldInstancesSavings) ComputeSavings(t *domain.Table) float64 {
	return t.Sum("Cost")
}
