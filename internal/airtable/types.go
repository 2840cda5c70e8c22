// Package airtable is a thin client for the Airtable REST API. It only
// covers the surface the storefront needs: listing with formulas and
// sorts, single-record reads, creates and (batched) field patches.
package airtable

import "time"

// Fields is the raw field map of a record. Values arrive as the JSON
// types Airtable chooses, so callers go through the typed accessors.
type Fields map[string]any

// Record is a single row of a table.
type Record struct {
	ID          string    `json:"id"`
	CreatedTime time.Time `json:"createdTime"`
	Fields      Fields    `json:"fields"`
}

// RecordUpdate pairs a record ID with the fields to patch.
type RecordUpdate struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// ListOptions narrows a table listing.
type ListOptions struct {
	// Filter is a filterByFormula expression, usually built with the
	// helpers in formula.go.
	Filter     string
	SortField  string
	SortDesc   bool
	MaxRecords int
	// Fields restricts the returned columns when non-empty.
	Fields []string
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type recordEnvelope struct {
	Fields Fields `json:"fields"`
}

type recordsEnvelope struct {
	Records []recordEnvelope `json:"records"`
}

type updateEnvelope struct {
	Records []RecordUpdate `json:"records"`
}
