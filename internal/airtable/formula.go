package airtable

import (
	"fmt"
	"strings"
)

// Formula helpers build filterByFormula expressions. Values are always
// quoted and escaped, field names are wrapped in braces.

// Eq matches records whose field equals value.
func Eq(field, value string) string {
	return fmt.Sprintf("{%s}=%s", field, quote(value))
}

// And combines expressions so that all must hold.
func And(exprs ...string) string {
	return combine("AND", exprs)
}

// Or combines expressions so that any may hold.
func Or(exprs ...string) string {
	return combine("OR", exprs)
}

// Not negates an expression.
func Not(expr string) string {
	return fmt.Sprintf("NOT(%s)", expr)
}

// HasField matches records where the field is non-empty. Useful for
// linked-record columns, which are absent until a link exists.
func HasField(field string) string {
	return fmt.Sprintf("{%s}", field)
}

// FindInJoined matches records whose multi-value field contains value.
// Linked-record arrays have no direct equality, so the field is joined
// to a string first.
func FindInJoined(value, field string) string {
	return fmt.Sprintf("FIND(%s, ARRAYJOIN({%s}))", quote(value), field)
}

// RecordIDEq matches the record with the given internal ID.
func RecordIDEq(id string) string {
	return fmt.Sprintf("RECORD_ID()='%s'", id)
}

func combine(op string, exprs []string) string {
	parts := make([]string, 0, len(exprs))
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		parts = append(parts, expr)
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return fmt.Sprintf("%s(%s)", op, strings.Join(parts, ", "))
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `"`, `\"`)
	return `"` + escaped + `"`
}
