package ta

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// RDSIdleDBInstances flags database instances with no connections over
// the advisor's sampling window.
type RDSIdleDBInstances struct {
	checks.Base
}

func NewRDSIdleDBInstances() (checks.Check, error) {
	return &RDSIdleDBInstances{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier: "ta_rdsidledbinstances",
		CommonName: "Amazon RDS Idle DB Instances",
		Provider:   domain.ProviderTA,
		Domain:     domain.DomainDatabase,
		Service:    "RDS",
		ExpectedColumns: []string{
			"Region", "DB_Instance", "Instance_Type", "Days_Idle", domain.SavingsColumn,
		},
		Authors: []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Description: "DB instances with no connections in the last 7 days. The " +
			"savings figure is the advisor's estimate of the instance's monthly cost.",
	})}, nil
}

func (c *RDSIdleDBInstances) AdvisorName() string {
	return "Amazon RDS Idle DB Instances"
}

// Rows expects advisor metadata tuples of [region, instance name,
// multi-az, instance type, storage, days since last connection,
// estimated monthly savings].
func (c *RDSIdleDBInstances) Rows(meta [][]string) *domain.Table {
	t := domain.NewTable(c.Descriptor().ExpectedColumns...)
	for _, m := range meta {
		if len(m) < 7 {
			continue
		}
		t.AddRow(m[0], m[1], m[3], m[5], m[6])
	}
	return t
}
