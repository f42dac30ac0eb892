// Package search implements the restaurant search pipeline: criteria
// parsing, location resolution, the radius-expansion query loop and result
// shaping.
package search

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/uncovercity/BistroHunter/internal/geo"
)

// Input errors, surfaced to clients as 400.
var (
	ErrMissingCity        = errors.New("search: city is required")
	ErrInvalidDate        = errors.New("search: date must be YYYY-MM-DD")
	ErrInvalidCoordinates = errors.New("search: coordinates must be two comma-separated numbers")
)

// Not-found errors, surfaced to clients as 404.
var (
	ErrZoneNotFound = errors.New("search: zone not found")
	ErrCityNotFound = errors.New("search: city not found")
)

// IsInvalidInput reports whether err is a client-input error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrMissingCity) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidCoordinates)
}

// IsNotFound reports whether err is a failed zone/city resolution.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrZoneNotFound) || errors.Is(err, ErrCityNotFound)
}

// Criteria is one request's search filters. It is immutable once built: the
// pipeline only reads it.
type Criteria struct {
	City        string
	DayOfWeek   string // lowercase Spanish weekday, empty when no date given
	PriceRanges []string
	Cuisines    []string
	Diet        string
	Dishes      []string
	Zones       []string
	Coords      *geo.Point
}

// RawCriteria carries the untrusted request fields exactly as received, from
// query parameters, a JSON body or the conversation extractor.
type RawCriteria struct {
	City        string
	Date        string
	PriceRange  string
	Cuisine     string
	Diet        string
	Dish        string
	Zone        string
	Coordinates string
}

// spanishWeekdays is indexed by time.Weekday (Sunday = 0).
var spanishWeekdays = [7]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

// ParseCriteria validates the raw fields and builds an immutable Criteria.
// City is mandatory; date and coordinates are validated strictly and any
// multi-valued filter is comma-split with per-token trimming.
func ParseCriteria(raw RawCriteria) (Criteria, error) {
	city := strings.TrimSpace(raw.City)
	if city == "" {
		return Criteria{}, ErrMissingCity
	}

	crit := Criteria{
		City:        city,
		PriceRanges: splitList(raw.PriceRange),
		Cuisines:    splitList(raw.Cuisine),
		Diet:        strings.TrimSpace(raw.Diet),
		Dishes:      splitList(raw.Dish),
		Zones:       splitList(raw.Zone),
	}

	if raw.Date != "" {
		day, err := DayOfWeekES(raw.Date)
		if err != nil {
			return Criteria{}, err
		}
		crit.DayOfWeek = day
	}

	if raw.Coordinates != "" {
		point, err := parseCoordinates(raw.Coordinates)
		if err != nil {
			return Criteria{}, err
		}
		crit.Coords = &point
	}

	return crit, nil
}

// DayOfWeekES converts a YYYY-MM-DD date into the lowercase Spanish weekday
// name used by the opening-days column.
func DayOfWeekES(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return spanishWeekdays[t.Weekday()], nil
}

// parseCoordinates parses "lat,lng" into a point. Exactly two finite numbers
// are required.
func parseCoordinates(s string) (geo.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
	}
	vals := make([]float64, 2)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return geo.Point{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
		}
		vals[i] = v
	}
	return geo.Point{Lat: vals[0], Lng: vals[1]}, nil
}

// splitList comma-splits a filter value, trimming each token and dropping
// empties. Returns nil for a blank input.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if t := strings.TrimSpace(tok); t != "" {
			out = append(out, t)
		}
	}
	return out
}
