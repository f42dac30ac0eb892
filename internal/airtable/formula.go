package airtable

import (
	"fmt"
	"strings"
)

// Field names of the restaurant table referenced in filter formulas.
// User input never becomes a field reference; it only ever appears inside
// string literals, which the renderer escapes.
const (
	FieldCity           Field = "city"
	FieldCityString     Field = "city_string"
	FieldPriceRange     Field = "price_range"
	FieldCategories     Field = "categories_string"
	FieldGoogleReviews  Field = "google_reviews"
	FieldOpeningDays    Field = "opening_days"
	FieldLocationLat    Field = "location/lat"
	FieldLocationLng    Field = "location/lng"
	FieldScore          Field = "score"
	FieldTitle          Field = "title"
	FieldMessage        Field = "bh_message"
	FieldURL            Field = "url"
	FieldDietaryOptions Field = "dietary_restrictions"
)

// Field is a column reference in the Airtable schema.
type Field string

// Formula is a filter predicate that renders to Airtable's formula language.
// Building predicates as a small expression tree keeps escaping and syntax in
// one renderer instead of scattered string interpolation.
type Formula interface {
	render(sb *strings.Builder)
}

type andExpr struct{ terms []Formula }
type orExpr struct{ terms []Formula }
type eqExpr struct {
	field Field
	value string
}
type findExpr struct {
	needle    string
	field     Field
	arrayJoin bool
}
type cmpExpr struct {
	field Field
	op    string
	value float64
}

// And combines terms conjunctively. Nil terms are skipped; a single surviving
// term is returned unwrapped.
func And(terms ...Formula) Formula {
	return combine(terms, func(ts []Formula) Formula { return andExpr{terms: ts} })
}

// Or combines terms disjunctively. Nil terms are skipped; a single surviving
// term is returned unwrapped, which sidesteps the backend's quirk with
// singleton OR groups.
func Or(terms ...Formula) Formula {
	return combine(terms, func(ts []Formula) Formula { return orExpr{terms: ts} })
}

// Eq tests a field for exact equality with a string value.
func Eq(field Field, value string) Formula {
	return eqExpr{field: field, value: value}
}

// Find tests that needle occurs as a substring of a plain text field.
func Find(needle string, field Field) Formula {
	return findExpr{needle: needle, field: field}
}

// FindInArray tests that needle occurs in a multi-value field, joined with
// ARRAYJOIN before the substring test.
func FindInArray(needle string, field Field) Formula {
	return findExpr{needle: needle, field: field, arrayJoin: true}
}

// GE tests field >= value for a numeric field.
func GE(field Field, value float64) Formula {
	return cmpExpr{field: field, op: ">=", value: value}
}

// LE tests field <= value for a numeric field.
func LE(field Field, value float64) Formula {
	return cmpExpr{field: field, op: "<=", value: value}
}

// Render produces the final formula string. Returns "" for a nil formula.
func Render(f Formula) string {
	if f == nil {
		return ""
	}
	var sb strings.Builder
	f.render(&sb)
	return sb.String()
}

func combine(terms []Formula, wrap func([]Formula) Formula) Formula {
	kept := make([]Formula, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			kept = append(kept, t)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return wrap(kept)
}

func (e andExpr) render(sb *strings.Builder) { renderGroup(sb, "AND", e.terms) }
func (e orExpr) render(sb *strings.Builder)  { renderGroup(sb, "OR", e.terms) }

func renderGroup(sb *strings.Builder, op string, terms []Formula) {
	sb.WriteString(op)
	sb.WriteByte('(')
	for i, t := range terms {
		if i > 0 {
			sb.WriteString(", ")
		}
		t.render(sb)
	}
	sb.WriteByte(')')
}

func (e eqExpr) render(sb *strings.Builder) {
	renderField(sb, e.field)
	sb.WriteString(" = ")
	renderString(sb, e.value)
}

func (e findExpr) render(sb *strings.Builder) {
	sb.WriteString("FIND(")
	renderString(sb, e.needle)
	sb.WriteString(", ")
	if e.arrayJoin {
		sb.WriteString("ARRAYJOIN(")
		renderField(sb, e.field)
		sb.WriteString(", ', ')")
	} else {
		renderField(sb, e.field)
	}
	sb.WriteString(") > 0")
}

func (e cmpExpr) render(sb *strings.Builder) {
	renderField(sb, e.field)
	fmt.Fprintf(sb, " %s %g", e.op, e.value)
}

func renderField(sb *strings.Builder, f Field) {
	sb.WriteByte('{')
	sb.WriteString(string(f))
	sb.WriteByte('}')
}

// renderString writes a single-quoted formula string literal. Backslashes and
// quotes are escaped so user input cannot break out of the literal.
func renderString(sb *strings.Builder, s string) {
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\', '\'':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('\'')
}
