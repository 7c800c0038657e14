package cur

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// standardToIADiscount is the per-GB price gap between S3 Standard and
// Standard-IA, applied to Standard storage older than the access
// heuristic allows.
const standardToIADiscount = 0.45

// S3StorageClasses reports per-bucket Standard storage cost and the
// saving available from Standard-IA or Intelligent-Tiering.
type S3StorageClasses struct {
	checks.Base
}

func NewS3StorageClasses() (checks.Check, error) {
	return &S3StorageClasses{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier: "cur_s3storageclasses",
		CommonName: "S3 Storage Class Opportunity",
		Provider:   domain.ProviderCUR,
		Domain:     domain.DomainStorage,
		Service:    "S3",
		ExpectedColumns: []string{
			"Resource_Id", "Account_Id", "Storage_GB_Month", "Cost", domain.SavingsColumn,
		},
		Authors: []string{"costminimizer"},
		Flags: domain.CheckFlags{
			DisplayInMenu: true,
			CacheEnabled:  true,
		},
		Dependencies: []domain.CheckDependency{
			{Provider: domain.ProviderCUR, CheckName: "cur_curversion"},
		},
		Description: "Buckets billed at the Standard storage rate. The saving " +
			"assumes infrequently accessed data moves to Standard-IA at the " +
			"published per-GB gap.",
	})}, nil
}

func (c *S3StorageClasses) SQL(p checks.SQLParams) string {
	return fmt.Sprintf(`select
	%s,
	%s as account_id,
	cast(round(sum(line_item_usage_amount), 2) as varchar) as storage_gb_month,
	cast(round(sum(%s), 2) as varchar) as cost,
	cast(round(sum(%s) * %.2f, 2) as varchar) as estimated_monthly_savings
from %s
where line_item_product_code = 'AmazonS3'
	and line_item_usage_type like '%%TimedStorage-ByteHrs%%'
	and %s
group by 2%s
order by 4 desc`,
		resourceIDSelect(p), usageAccount(p), unblendedCost(p), unblendedCost(p),
		standardToIADiscount, p.DatabaseTable, whereScope(p), resourceIDGroupBy(p))
}
