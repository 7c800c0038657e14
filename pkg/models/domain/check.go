package domain

// Provider tags for the four upstream data sources.
const (
	ProviderCE  = "ce"  // Cost Explorer cost history
	ProviderCO  = "co"  // Compute Optimizer rightsizing
	ProviderTA  = "ta"  // Trusted Advisor best-practice checks
	ProviderCUR = "cur" // CUR warehouse queried through Athena
)

// ProviderOrder is the fixed dispatch order across providers.
var ProviderOrder = []string{ProviderCE, ProviderCO, ProviderTA, ProviderCUR}

// Coarse grouping tags used to pivot savings in the workbook.
const (
	DomainCompute         = "COMPUTE"
	DomainStorage         = "STORAGE"
	DomainNetwork         = "NETWORK"
	DomainDatabase        = "DATABASE"
	DomainMachineLearning = "MACHINE_LEARNING"
	DomainSecurity        = "SECURITY"
	DomainManagement      = "MANAGEMENT"
	DomainOrganization    = "ORGANIZATION"
	DomainOverall         = "Overall"
)

// SavingsColumn is the canonical savings column name. When a descriptor
// declares it, the aggregator reads only this column.
const SavingsColumn = "Estimated_Monthly_Savings"

// MaxIdentifierLen bounds check identifiers so they remain usable as
// spreadsheet sheet names.
const MaxIdentifierLen = 31

// CheckParameter describes one configurable parameter of a check.
type CheckParameter struct {
	Name          string
	AllowedValues []string
	Current       string
}

// CheckDependency names another check whose output must be available
// before the dependant runs.
type CheckDependency struct {
	Provider  string
	CheckName string
}

// CheckFlags carries the boolean descriptor attributes.
type CheckFlags struct {
	DisplayInMenu  bool
	Configurable   bool
	Disabled       bool
	IsPrecondition bool
	SupportsTags   bool
	WritesToDB     bool
	CacheEnabled   bool
}

// CheckDescriptor is the immutable record describing one check. The
// Identifier doubles as the cache-file component and the sheet name.
type CheckDescriptor struct {
	Identifier      string
	CommonName      string
	Provider        string
	Domain          string
	Service         string
	ExpectedColumns []string
	Authors         []string
	Flags           CheckFlags
	Parameters      []CheckParameter
	Dependencies    []CheckDependency
	Description     string
}

// DeclaresSavings reports whether the descriptor's expected columns end
// with the canonical savings column.
func (d CheckDescriptor) DeclaresSavings() bool {
	n := len(d.ExpectedColumns)
	return n > 0 && d.ExpectedColumns[n-1] == SavingsColumn
}

// Parameter returns the named parameter descriptor, if declared.
func (d CheckDescriptor) Parameter(name string) (CheckParameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return CheckParameter{}, false
}
