package ce

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// TaggedSpend breaks monthly spend down by the configured cost tag.
// The adapter applies the tag key and value filters from the
// configuration view.
type TaggedSpend struct {
	checks.Base
}

func NewTaggedSpend() (checks.Check, error) {
	return &TaggedSpend{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "ce_taggedspend",
		CommonName:      "Tagged Spend",
		Provider:        domain.ProviderCE,
		Domain:          domain.DomainManagement,
		Service:         "Cost Explorer",
		ExpectedColumns: []string{"Month", "Tag_Value", "Spend"},
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			Configurable:  true,
			SupportsTags:  true,
			CacheEnabled:  true,
		},
		Parameters: []domain.CheckParameter{
			{
				Name:          "granularity",
				AllowedValues: []string{"MONTHLY", "DAILY"},
				Current:       "MONTHLY",
			},
		},
		Description: "Spend grouped by the configured cost allocation tag. Rows with " +
			"no tag value appear under an empty key.",
	})}, nil
}

func (c *TaggedSpend) Query() checks.CEQuery {
	return checks.CEQuery{
		Name:    "tagged_spend",
		GroupBy: []string{"TAG"},
		Style:   checks.CEStyleTotal,
		Inclusions: checks.CEInclusions{
			Upfront: true,
			Support: true,
			Tax:     true,
		},
	}
}

func (c *TaggedSpend) ComputeSavings(_ *domain.Table) float64 { return 0 }
