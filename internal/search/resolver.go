package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/uncovercity/BistroHunter/internal/geo"
	"github.com/uncovercity/BistroHunter/internal/geocode"
)

// Resolver turns a zone name, an explicit coordinate pair or a bare city name
// into a search center, in that precedence order.
type Resolver struct {
	geocoder geocode.Geocoder
}

// NewResolver creates a Resolver backed by the given geocoder.
func NewResolver(g geocode.Geocoder) *Resolver {
	return &Resolver{geocoder: g}
}

// ResolveZone geocodes a named sub-area of a city. A geocoder miss becomes
// ErrZoneNotFound; transport failures propagate unchanged so callers can tell
// "does not exist" from "could not ask".
func (r *Resolver) ResolveZone(ctx context.Context, zone, city string) (geo.Point, error) {
	point, err := r.geocoder.Geocode(ctx, fmt.Sprintf("zona %s, %s", zone, city))
	if errors.Is(err, geocode.ErrNoResults) {
		return geo.Point{}, fmt.Errorf("%w: %q", ErrZoneNotFound, zone)
	}
	if err != nil {
		return geo.Point{}, fmt.Errorf("search: resolve zone %q: %w", zone, err)
	}
	return point, nil
}

// ResolveCenter resolves the search center for criteria without zones:
// explicit coordinates win, otherwise the city itself is geocoded.
func (r *Resolver) ResolveCenter(ctx context.Context, crit Criteria) (geo.Point, error) {
	if crit.Coords != nil {
		return *crit.Coords, nil
	}

	point, err := r.geocoder.Geocode(ctx, crit.City)
	if errors.Is(err, geocode.ErrNoResults) {
		return geo.Point{}, fmt.Errorf("%w: %q", ErrCityNotFound, crit.City)
	}
	if err != nil {
		return geo.Point{}, fmt.Errorf("search: resolve city %q: %w", crit.City, err)
	}
	return point, nil
}
