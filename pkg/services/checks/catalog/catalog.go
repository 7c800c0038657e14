// Package catalog wires every shipped check into the registry's
// discovery input, grouped by provider tag.
package catalog

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/ce"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/co"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/cur"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/ta"
)

// Default returns the full shipped catalog.
func Default() checks.Catalog {
	return checks.Catalog{
		domain.ProviderCE: {
			ce.NewTotalChange,
			ce.NewAccountSummary,
			ce.NewServiceSpend,
			ce.NewTaggedSpend,
		},
		domain.ProviderCO: {
			co.NewEC2Rightsizing,
			co.NewEBSOptimization,
			co.NewASGRightsizing,
		},
		domain.ProviderTA: {
			ta.NewUnassociatedEIPs,
			ta.NewIdleLoadBalancers,
			ta.NewLowUtilizationEC2,
			ta.NewRDSIdleDBInstances,
		},
		domain.ProviderCUR: {
			cur.NewCURVersion,
			cur.NewNATGatewayUsage,
			cur.NewGravitonECCSavings,
			cur.NewGP3Opportunity,
			cur.NewS3StorageClasses,
			cur.NewRDSOldInstancesSavings,
			cur.NewLambdaARMSavings,
			cur.NewElastiCacheUsage,
		},
	}
}
