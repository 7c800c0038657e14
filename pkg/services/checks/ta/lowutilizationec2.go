package ta

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// LowUtilizationEC2 flags running instances whose daily CPU and network
// stayed under the advisor's thresholds.
type LowUtilizationEC2 struct {
	checks.Base
}

func NewLowUtilizationEC2() (checks.Check, error) {
	return &LowUtilizationEC2{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "ta_lowutilizationec2",
		CommonName:      "Low Utilization Amazon EC2 Instances",
		Provider:        domain.ProviderTA,
		Domain:          domain.DomainCompute,
		Service:         "EC2",
		ExpectedColumns: []string{"Region", "Instance_Id", "Instance_Type", domain.SavingsColumn},
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Description: "Instances whose 14-day CPU utilisation and network I/O stayed " +
			"under the advisor thresholds, with the advisor's monthly cost as the " +
			"savings figure.",
	})}, nil
}

func (c *LowUtilizationEC2) AdvisorName() string {
	return "Low Utilization Amazon EC2 Instances"
}

// Rows expects advisor metadata tuples of
// [region/az, instance id, name, instance type, estimated monthly savings].
func (c *LowUtilizationEC2) Rows(meta [][]string) *domain.Table {
	t := domain.NewTable(c.Descriptor().ExpectedColumns...)
	for _, m := range meta {
		if len(m) < 5 {
			continue
		}
		t.AddRow(m[0], m[1], m[3], m[4])
	}
	return t
}
