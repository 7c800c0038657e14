package ce

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// ServiceSpend breaks monthly spend down by service.
type ServiceSpend struct {
	checks.Base
}

func NewServiceSpend() (checks.Check, error) {
	return &ServiceSpend{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "ce_servicespend",
		CommonName:      "Service Spend",
		Provider:        domain.ProviderCE,
		Domain:          domain.DomainOverall,
		Service:         "Cost Explorer",
		ExpectedColumns: []string{"Month", "Service", "Spend"},
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Description: "Monthly spend per service. Credit and refund record types are " +
			"excluded so the figures match the invoiced amounts.",
	})}, nil
}

func (c *ServiceSpend) Query() checks.CEQuery {
	return checks.CEQuery{
		Name:    "service_spend",
		GroupBy: []string{"SERVICE"},
		Style:   checks.CEStyleTotal,
		Inclusions: checks.CEInclusions{
			Upfront: true,
			Support: true,
			Tax:     true,
		},
	}
}

func (c *ServiceSpend) ComputeSavings(_ *domain.Table) float64 { return 0 }
