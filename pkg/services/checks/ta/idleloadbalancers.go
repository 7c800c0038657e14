package ta

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// IdleLoadBalancers flags load balancers with no healthy backends or
// negligible request counts. The advisor supplies the savings figure.
type IdleLoadBalancers struct {
	checks.Base
}

func NewIdleLoadBalancers() (checks.Check, error) {
	return &IdleLoadBalancers{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "ta_idleloadbalancers",
		CommonName:      "Idle Load Balancers",
		Provider:        domain.ProviderTA,
		Domain:          domain.DomainNetwork,
		Service:         "ELB",
		ExpectedColumns: []string{"Region", "Load_Balancer", "Reason", domain.SavingsColumn},
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Description: "Load balancers that appear idle: no healthy backend instances " +
			"or a negligible request count over the advisor's sampling window.",
	})}, nil
}

func (c *IdleLoadBalancers) AdvisorName() string { return "Idle Load Balancers" }

// Rows expects advisor metadata tuples of
// [region, name, reason, estimated monthly savings].
func (c *IdleLoadBalancers) Rows(meta [][]string) *domain.Table {
	t := domain.NewTable(c.Descriptor().ExpectedColumns...)
	for _, m := range meta {
		if len(m) < 4 {
			continue
		}
		t.AddRow(m[0], m[1], m[2], m[3])
	}
	return t
}
