package cur

import (
	"fmt"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// CURVersion is the precondition for the warehouse pack: it confirms
// the table has recent line items before any savings query runs. Its
// output feeds dependant checks and never reaches the workbook.
type CURVersion struct {
	checks.Base
}

func NewCURVersion() (checks.Check, error) {
	return &CURVersion{Base: checks.NewBase(domain.CheckDescriptor{
		Identifier:      "cur_curversion",
		CommonName:      "CUR Table Freshness",
		Provider:        domain.ProviderCUR,
		Domain:          domain.DomainManagement,
		Service:         "CUR",
		ExpectedColumns: []string{"Max_Date", "Row_Count"},
		Authors:         []string{"costminimizer"},
		Flags: domain.CheckFlags{
			IsPrecondition: true,
			CacheEnabled:   false,
		},
		Description: "Latest usage date and row count of the CUR table. Runs before " +
			"dependant warehouse checks; never written to the workbook.",
	})}, nil
}

func (c *CURVersion) SQL(p checks.SQLParams) string {
	return fmt.Sprintf(`select
	cast(max(line_item_usage_start_date) as varchar) as max_date,
	cast(count(*) as varchar) as row_count
from %s`, p.DatabaseTable)
}

func (c *CURVersion) ComputeSavings(_ *domain.Table) float64 { return 0 }
