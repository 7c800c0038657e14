package co

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// EBSOptimization surfaces volume-type and size recommendations for
// attached EBS volumes.
type EBSOptimization struct {
	checks.Base
}

func NewEBSOptimization() (checks.Check, error) {
	return &EBSOptimization{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "co_ebsoptimization",
		CommonName:      "EBS Volume Optimization",
		Provider:        domain.ProviderCO,
		Domain:          domain.DomainStorage,
		Service:         "EBS",
		ExpectedColumns: Columns,
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Description: "Volume configuration recommendations with the upstream's " +
			"estimated monthly savings per volume.",
	})}, nil
}

func (c *EBSOptimization) Kind() checks.ROKind { return checks.ROKindEBS }
