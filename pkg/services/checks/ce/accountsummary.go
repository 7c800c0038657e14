package ce

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// AccountSummary breaks monthly spend down by linked account.
type AccountSummary struct {
	checks.Base
}

func NewAccountSummary() (checks.Check, error) {
	return &AccountSummary{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "ce_accountsummary",
		CommonName:      "Account Spend Summary",
		Provider:        domain.ProviderCE,
		Domain:          domain.DomainOrganization,
		Service:         "Cost Explorer",
		ExpectedColumns: []string{"Month", "Account_Id", "Spend"},
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Description: "Monthly spend per linked account across the payer, excluding " +
			"credits and refunds.",
	})}, nil
}

func (c *AccountSummary) Query() checks.CEQuery {
	return checks.CEQuery{
		Name:    "account_summary",
		GroupBy: []string{"LINKED_ACCOUNT"},
		Style:   checks.CEStyleTotal,
		Inclusions: checks.CEInclusions{
			Upfront: true,
			Support: true,
			Tax:     true,
		},
	}
}

func (c *AccountSummary) ComputeSavings(_ *domain.Table) float64 { return 0 }
