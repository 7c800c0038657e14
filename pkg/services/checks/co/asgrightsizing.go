package co

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// ASGRightsizing surfaces configuration recommendations for auto
// scaling groups whose instances are over-provisioned.
type ASGRightsizing struct {
	checks.Base
}

func NewASGRightsizing() (checks.Check, error) {
	return &ASGRightsizing{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "co_asgrightsizing",
		CommonName:      "Auto Scaling Group Rightsizing",
		Provider:        domain.ProviderCO,
		Domain:          domain.DomainCompute,
		Service:         "Auto Scaling",
		ExpectedColumns: Columns,
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Description: "Auto scaling group rightsizing recommendations with the " +
			"upstream's estimated monthly savings per group.",
	})}, nil
}

func (c *ASGRightsizing) Kind() checks.ROKind { return checks.ROKindASG }
