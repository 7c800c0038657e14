package co

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// EC2Rightsizing surfaces instance-type recommendations for
// over-provisioned EC2 instances in the selected region.
type EC2Rightsizing struct {
	checks.Base
}

func NewEC2Rightsizing() (checks.Check, error) {
	return &EC2Rightsizing{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "co_ec2rightsizing",
		CommonName:      "EC2 Rightsizing",
		Provider:        domain.ProviderCO,
		Domain:          domain.DomainCompute,
		Service:         "EC2",
		ExpectedColumns: Columns,
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			SupportsTags:  true,
			CacheEnabled:  true,
		},
		Description: "Per-instance rightsizing recommendations: current type, " +
			"recommended type, finding classification, migration effort and the " +
			"upstream's estimated monthly savings.",
	})}, nil
}

func (c *EC2Rightsizing) Kind() checks.ROKind { return checks.ROKindEC2 }
