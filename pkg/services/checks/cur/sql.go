// Package cur holds the warehouse check pack. Each check emits a SQL
// template parameterised by the adapter's one-time schema
// introspection: the CUR dialect and whether the table carries
// line_item_resource_id.
package cur

import (
	"fmt"
	"strings"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// Dialect names for SQLParams.SchemaVersion.
const (
	DialectLegacy = "legacy"
	DialectV2     = "v2.0"
	DialectFocus  = "focus"
)

// resourceIDSelect returns the resource-id select expression. Tables
// created without resource ids get a literal in its place.
func resourceIDSelect(p checks.SQLParams) string {
	if p.HasResourceID {
		return "line_item_resource_id"
	}
	return "'Unknown Resource' as line_item_resource_id"
}

// resourceIDGroupBy returns the trailing GROUP BY term for the resource
// id, empty when the column is absent.
func resourceIDGroupBy(p checks.SQLParams) string {
	if p.HasResourceID {
		return ", line_item_resource_id"
	}
	return ""
}

// unblendedCost returns the cost expression for the detected dialect.
func unblendedCost(p checks.SQLParams) string {
	if p.SchemaVersion == DialectFocus {
		return "billedcost"
	}
	return "line_item_unblended_cost"
}

// usageAccount returns the usage account column for the detected dialect.
func usageAccount(p checks.SQLParams) string {
	if p.SchemaVersion == DialectFocus {
		return "subaccountid"
	}
	return "line_item_usage_account_id"
}

// whereScope assembles the common WHERE tail: date window, optional
// account filter.
func whereScope(p checks.SQLParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "line_item_usage_start_date <= date '%s'", p.MaxDate)
	if p.AccountFilter != "" {
		fmt.Fprintf(&b, " and %s", p.AccountFilter)
	}
	return b.String()
}
