// Package ta holds the advisor check pack. The advisor returns one
// metadata tuple per flagged resource; each check knows its tuple
// ordering and normalises it into the expected columns.
package ta

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/store/pricing"
)

// UnassociatedEIPs flags allocated Elastic IP addresses not attached to
// a running instance. The advisor does not price these, so the savings
// cell is filled from the reference rate per address.
type UnassociatedEIPs struct {
	checks.Base
	pricing pricing.Store
}

func NewUnassociatedEIPs() (checks.Check, error) {
	return &UnassociatedEIPs{
		Base: checks.NewBase(domain.CheckDescriptor{
			Identifier:      "ta_unassociatedelasticipaddresses",
			CommonName:      "Unassociated Elastic IP Addresses",
			Provider:        domain.ProviderTA,
			Domain:          domain.DomainNetwork,
			Service:         "EC2",
			ExpectedColumns: []string{"Region", "IP_Address", domain.SavingsColumn},
			Authors:         []string{"costminimizer"},
			Flags: domain.CheckFlags{
				DisplayInMenu: true,
				CacheEnabled:  true,
			},
			Description: "Elastic IP addresses that are allocated but not associated " +
				"with a running instance. Each idle address bills at the monthly " +
				"reference rate.",
		}),
		pricing: pricing.NewStore(),
	}, nil
}

func (c *UnassociatedEIPs) AdvisorName() string {
	return "Unassociated Elastic IP Addresses"
}

// Rows expects advisor metadata tuples of [region, ip address].
func (c *UnassociatedEIPs) Rows(meta [][]string) *domain.Table {
	rate, _ := c.pricing.MonthlyRate(pricing.KeyElasticIP)
	t := domain.NewTable(c.Descriptor().ExpectedColumns...)
	for _, m := range meta {
		if len(m) < 2 {
			continue
		}
		t.AddRow(m[0], m[1], fmt.Sprintf("%.2f", rate.MonthlyRate))
	}
	return t
}
