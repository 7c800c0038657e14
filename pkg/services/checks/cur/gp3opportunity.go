package cur

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// gp3Discount is the per-GB price advantage of gp3 over gp2.
const gp3Discount = 0.20

// GP3Opportunity finds gp2 volume spend that would drop under gp3.
type GP3Opportunity struct {
	checks.Base
}

func NewGP3Opportunity() (checks.Check, error) {
	return &GP3Opportunity{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier: "cur_gp3opportunity",
		CommonName: "gp2 to gp3 Migration",
		Provider:   domain.ProviderCUR,
		Domain:     domain.DomainStorage,
		Service:    "EBS",
		ExpectedColumns: []string{
			"Resource_Id", "Account_Id", "Region", "Usage_GB_Month", "Cost", domain.SavingsColumn,
		},
		Authors: []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Dependencies: []domain.CheckDependency{
			{Provider: domain.ProviderCUR, CheckName: "cur_curversion"},
		},
		Description: "gp2 volume usage and cost; gp3 delivers the same baseline " +
			"performance at a lower per-GB rate, so the saving is the flat price " +
			"difference.",
	})}, nil
}

func (c *GP3Opportunity) SQL(p checks.SQLParams) string {
	return fmt.Sprintf(`select
	%s,
	%s as account_id,
	product_region as region,
	cast(round(sum(line_item_usage_amount), 2) as varchar) as usage_gb_month,
	cast(round(sum(%s), 2) as varchar) as cost,
	cast(round(sum(%s) * %.2f, 2) as varchar) as estimated_monthly_savings
from %s
where line_item_usage_type like '%%EBS:VolumeUsage.gp2%%'
	and %s
group by 2, product_region%s
order by 5 desc`,
		resourceIDSelect(p), usageAccount(p), unblendedCost(p), unblendedCost(p),
		gp3Discount, p.DatabaseTable, whereScope(p), resourceIDGroupBy(p))
}
