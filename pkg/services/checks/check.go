package checks

import (
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

// Check is a single cost-analysis routine. Implementations are
// declarative: they describe themselves and shape their provider's
// query, but never call the provider directly.
type Check interface {
	// Descriptor returns the immutable metadata record, including the
	// current parameter values.
	Descriptor() domain.CheckDescriptor

	// SetParameters applies persisted parameter overrides. Unknown
	// names are ignored; missing names keep their defaults.
	SetParameters(params map[string]string)

	// ParameterValues returns the effective parameter snapshot.
	ParameterValues() map[string]string
}

// PostProcessor is an optional hook a check may implement to adjust its
// run after data arrives. The default is a no-op.
type PostProcessor interface {
	PostProcess(run *domain.CheckRun) error
}

// SavingsComputer overrides the default savings calculation (sum of the
// canonical savings column). Cost-history checks use it to report 0;
// one warehouse check uses it to sum a cost column instead.
type SavingsComputer interface {
	ComputeSavings(t *domain.Table) float64
}

// Factory builds one check instance. A factory that errors is logged
// and skipped at discovery.
type Factory func() (Check, error)

// CEStyle selects how a cost-history query is shaped.
type CEStyle string

const (
	CEStyleTotal  CEStyle = "Total"
	CEStyleChange CEStyle = "Change"
)

// CEInclusions toggles record types included in a cost-history query.
type CEInclusions struct {
	Credits bool
	Refund  bool
	Upfront bool
	Support bool
	Tax     bool
}

// CEQuery is the query shape a cost-history check supplies. The adapter
// translates it into the upstream request.
type CEQuery struct {
	Name       string
	GroupBy    []string
	Style      CEStyle
	Inclusions CEInclusions
}

// CECheck is a cost-history check.
type CECheck interface {
	Check
	Query() CEQuery
}

// ROKind selects which rightsizing recommendation family a check reads.
type ROKind string

const (
	ROKindEC2 ROKind = "ec2"
	ROKindEBS ROKind = "ebs"
	ROKindASG ROKind = "asg"
)

// COCheck is a rightsizing check.
type COCheck interface {
	Check
	Kind() ROKind
}

// TACheck is an advisor check. The advisor returns arbitrary metadata
// tuples per flagged resource; the check knows the ordering and
// produces normalised rows.
type TACheck interface {
	Check
	// AdvisorName is the advisor check's common name, resolved to an
	// advisor check id by the adapter's lookup table.
	AdvisorName() string
	// Rows converts raw flagged-resource metadata into the expected
	// column shape.
	Rows(meta [][]string) *domain.Table
}

// SQLParams parameterises a warehouse SQL template.
type SQLParams struct {
	// DatabaseTable is the fully qualified "database.table" target.
	DatabaseTable string
	PayerID       string
	// AccountFilter is a ready-to-splice filter clause, empty when all
	// accounts are in scope.
	AccountFilter string
	Region        string
	MaxDate       string
	// SchemaVersion is the detected CUR dialect: legacy, v2.0 or focus.
	SchemaVersion string
	// HasResourceID reports whether line_item_resource_id exists in the
	// table; templates substitute a literal when it does not.
	HasResourceID bool
}

// CURCheck is a warehouse check emitting a SQL template.
type CURCheck interface {
	Check
	SQL(p SQLParams) string
}

// Base carries the descriptor and parameter state shared by all checks.
type Base struct {
	desc   domain.CheckDescriptor
	params map[string]string
}

// NewBase seeds parameter state from the descriptor defaults.
func NewBase(desc domain.CheckDescriptor) Base {
	params := make(map[string]string, len(desc.Parameters))
	for _, p := range desc.Parameters {
		params[p.Name] = p.Current
	}
	return Base{desc: desc, params: params}
}

func (b *Base) Descriptor() domain.CheckDescriptor {
	d := b.desc
	if len(d.Parameters) > 0 {
		params := make([]domain.CheckParameter, len(d.Parameters))
		copy(params, d.Parameters)
		for i := range params {
			if v, ok := b.params[params[i].Name]; ok {
				params[i].Current = v
			}
		}
		d.Parameters = params
	}
	return d
}

func (b *Base) SetParameters(params map[string]string) {
	for name, value := range params {
		decl, ok := b.desc.Parameter(name)
		if !ok {
			continue
		}
		if len(decl.AllowedValues) > 0 && !contains(decl.AllowedValues, value) {
			continue
		}
		b.params[name] = value
	}
}

func (b *Base) ParameterValues() map[string]string {
	out := make(map[string]string, len(b.params))
	for k, v := range b.params {
		out[k] = v
	}
	return out
}

// Param returns the effective value for one parameter.
func (b *Base) Param(name string) string {
	return b.params[name]
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
