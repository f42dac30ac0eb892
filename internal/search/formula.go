package search

import (
	"github.com/uncovercity/BistroHunter/internal/airtable"
	"github.com/uncovercity/BistroHunter/internal/geo"
)

// filterFormula builds the static predicate for a Criteria: city clause plus
// every optional filter, without any spatial terms. The bounding box is added
// per radius step by the expansion loop.
func filterFormula(crit Criteria) airtable.Formula {
	return airtable.And(
		cityClause(crit.City),
		anyOf(crit.PriceRanges, func(tok string) airtable.Formula {
			return airtable.FindInArray(tok, airtable.FieldPriceRange)
		}),
		anyOf(crit.Cuisines, func(tok string) airtable.Formula {
			return airtable.Find(tok, airtable.FieldCategories)
		}),
		dietClause(crit.Diet),
		anyOf(crit.Dishes, func(tok string) airtable.Formula {
			return airtable.Find(tok, airtable.FieldGoogleReviews)
		}),
		dayClause(crit.DayOfWeek),
	)
}

// withBoundingBox extends a static predicate with the four spatial
// inequalities for one radius step.
func withBoundingBox(static airtable.Formula, box geo.BoundingBox) airtable.Formula {
	return airtable.And(
		static,
		airtable.GE(airtable.FieldLocationLat, box.LatMin),
		airtable.LE(airtable.FieldLocationLat, box.LatMax),
		airtable.GE(airtable.FieldLocationLng, box.LngMin),
		airtable.LE(airtable.FieldLocationLng, box.LngMax),
	)
}

// cityClause matches either the linked-record city field or its denormalized
// plain-text copy; the table is inconsistent between the two.
func cityClause(city string) airtable.Formula {
	return airtable.Or(
		airtable.Eq(airtable.FieldCity, city),
		airtable.Find(city, airtable.FieldCityString),
	)
}

func dietClause(diet string) airtable.Formula {
	if diet == "" {
		return nil
	}
	return airtable.Find(diet, airtable.FieldCategories)
}

func dayClause(day string) airtable.Formula {
	if day == "" {
		return nil
	}
	return airtable.FindInArray(day, airtable.FieldOpeningDays)
}

// anyOf maps tokens through mk and ORs the results. airtable.Or collapses a
// single token to its bare test.
func anyOf(tokens []string, mk func(string) airtable.Formula) airtable.Formula {
	if len(tokens) == 0 {
		return nil
	}
	terms := make([]airtable.Formula, len(tokens))
	for i, tok := range tokens {
		terms[i] = mk(tok)
	}
	return airtable.Or(terms...)
}
