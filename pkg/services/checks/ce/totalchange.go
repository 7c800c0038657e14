// Package ce holds the cost-history check pack. These checks are
// informational: they chart spend movement and carry no savings column,
// so their savings total is always 0.
package ce

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// TotalChange reports month-over-month movement of total account spend
// across the query window.
type TotalChange struct {
	checks.Base
}

func NewTotalChange() (checks.Check, error) {
	return &TotalChange{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "ce_totalchange",
		CommonName:      "Total Spend Change",
		Provider:        domain.ProviderCE,
		Domain:          domain.DomainOverall,
		Service:         "Cost Explorer",
		ExpectedColumns: []string{"Month", "Total_Spend", "Change"},
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Description: "Month-grouped total spend with the absolute change from the " +
			"previous month, over the configured window (default last 12 months).",
	})}, nil
}

func (c *TotalChange) Query() checks.CEQuery {
	return checks.CEQuery{
		Name:  "total_change",
		Style: checks.CEStyleChange,
		Inclusions: checks.CEInclusions{
			Upfront: true,
			Support: true,
			Tax:     true,
		},
	}
}

// ComputeSavings pins cost-history checks at 0: they inform, they do
// not recommend.
func (c *TotalChange) ComputeSavings(_ *domain.Table) float64 { return 0 }
