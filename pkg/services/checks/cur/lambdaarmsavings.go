package cur

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// LambdaARMSavings estimates the saving from moving x86 Lambda
// functions to arm64. Disabled: the duration-based estimate has not
// been validated against real arm64 billing, so the check registers but
// never runs.
type LambdaARMSavings struct {
	checks.Base
}

func NewLambdaARMSavings() (checks.Check, error) {
	return &LambdaARMSavings{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier: "cur_lambdaarmsavings",
		CommonName: "Lambda arm64 Savings",
		Provider:   domain.ProviderCUR,
		Domain:     domain.DomainCompute,
		Service:    "Lambda",
		ExpectedColumns: []string{
			"Resource_Id", "Account_Id", "GB_Seconds", "Cost", domain.SavingsColumn,
		},
		Authors: []string{"costminimizer"},
		Flags: domain.CheckFlags{
			Disabled:     true,
			CacheEnabled: true,
		},
		Dependencies: []domain.CheckDependency{
			{Provider: domain.ProviderCUR, CheckName: "cur_curversion"},
		},
		Description: "x86 Lambda duration cost with the arm64 price gap applied. " +
			"Disabled pending validation of the savings estimate.",
	})}, nil
}

func (c *LambdaARMSavings) SQL(p checks.SQLParams) string {
	return fmt.Sprintf(`select
	%s,
	%s as account_id,
	cast(round(sum(line_item_usage_amount), 2) as varchar) as gb_seconds,
	cast(round(sum(%s), 2) as varchar) as cost,
	cast(round(sum(%s) * 0.25, 2) as varchar) as estimated_monthly_savings
from %s
where line_item_product_code = 'AWSLambda'
	and line_item_usage_type like '%%Lambda-GB-Second%%'
	and %s
group by 2%s
order by 4 desc`,
		resourceIDSelect(p), usageAccount(p), unblendedCost(p), unblendedCost(p),
		p.DatabaseTable, whereScope(p), resourceIDGroupBy(p))
}
