// Package co holds the rightsizing check pack. The upstream supplies
// the savings figure per flagged resource; checks only select which
// recommendation family the adapter reads.
package co

import "github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"

// Columns is the normalised row shape every rightsizing check shares.
var Columns = []string{
	"Resource_Id",
	"Current_Type",
	"Resource_Name",
	"Recommended_Type",
	"Finding",
	"Migration_Effort",
	"Currency",
	domain.SavingsColumn,
}
