package cur

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// gravitonDiscount is the assumed price advantage of the equivalent
// Graviton instance type over x86, applied to last month's compute cost.
const gravitonDiscount = 0.20

// GravitonECCSavings finds x86 EC2 compute spend with a Graviton
// equivalent and estimates the migration saving.
type GravitonECCSavings struct {
	checks.Base
}

func NewGravitonECCSavings() (checks.Check, error) {
	return &GravitonECCSavings{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier: "cur_gravitoneccsavings",
		CommonName: "Graviton EC2 Savings",
		Provider:   domain.ProviderCUR,
		Domain:     domain.DomainCompute,
		Service:    "EC2",
		ExpectedColumns: []string{
			"Resource_Id", "Account_Id", "Instance_Type", "Cost", domain.SavingsColumn,
		},
		Authors: []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Dependencies: []domain.CheckDependency{
			{Provider: domain.ProviderCUR, CheckName: "cur_curversion"},
		},
		Description: "x86 instance usage whose family has a Graviton equivalent. " +
			"Savings assume the standard Graviton price advantage over last " +
			"month's compute cost.",
	})}, nil
}

func (c *GravitonECCSavings) SQL(p checks.SQLParams) string {
	return fmt.Sprintf(`select
	%s,
	%s as account_id,
	product_instance_type as instance_type,
	cast(round(sum(%s), 2) as varchar) as cost,
	cast(round(sum(%s) * %.2f, 2) as varchar) as estimated_monthly_savings
from %s
where line_item_product_code = 'AmazonEC2'
	and line_item_line_item_type = 'Usage'
	and product_instance_type is not null
	and product_instance_type not like '%%g.%%'
	and product_instance_type not like '%%gd.%%'
	and product_physical_processor like '%%Intel%%'
	and %s
group by 2, product_instance_type%s
order by 4 desc`,
		resourceIDSelect(p), usageAccount(p), unblendedCost(p), unblendedCost(p),
		gravitonDiscount, p.DatabaseTable, whereScope(p), resourceIDGroupBy(p))
}
