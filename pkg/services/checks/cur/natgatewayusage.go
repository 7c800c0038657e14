package cur

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// NATGatewayUsage finds NAT gateways whose data-processing charges
// suggest traffic that could ride a gateway endpoint instead. Savings
// estimate: the data-processing share of each gateway's monthly cost.
type NATGatewayUsage struct {
	checks.Base
}

func NewNATGatewayUsage() (checks.Check, error) {
	return &NATGatewayUsage{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier: "cur_natgatewayusage",
		CommonName: "NAT Gateway Usage",
		Provider:   domain.ProviderCUR,
		Domain:     domain.DomainNetwork,
		Service:    "VPC",
		ExpectedColumns: []string{
			"Resource_Id", "Account_Id", "Region", "Usage_GB", "Cost", domain.SavingsColumn,
		},
		Authors: []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Dependencies: []domain.CheckDependency{
			{Provider: domain.ProviderCUR, CheckName: "cur_curversion"},
		},
		Description: "Per-gateway NAT data processing volume and cost over the last " +
			"complete month. S3 and DynamoDB traffic through a NAT gateway can move " +
			"to gateway endpoints at no charge.",
	})}, nil
}

func (c *NATGatewayUsage) SQL(p checks.SQLParams) string {
	return fmt.Sprintf(`select
	%s,
	%s as account_id,
	product_region as region,
	cast(round(sum(line_item_usage_amount), 2) as varchar) as usage_gb,
	cast(round(sum(%s), 2) as varchar) as cost,
	cast(round(sum(case when line_item_usage_type like '%%NatGateway-Bytes%%'
		then %s else 0 end), 2) as varchar) as estimated_monthly_savings
from %s
where line_item_usage_type like '%%NatGateway%%'
	and %s
group by 2, product_region%s
order by 5 desc`,
		resourceIDSelect(p), usageAccount(p), unblendedCost(p), unblendedCost(p),
		p.DatabaseTable, whereScope(p), resourceIDGroupBy(p))
}
