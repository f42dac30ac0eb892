package search

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/mmcloughlin/geohash"
	"github.com/uncovercity/BistroHunter/internal/airtable"
	"github.com/uncovercity/BistroHunter/internal/cache"
	"github.com/uncovercity/BistroHunter/internal/geo"
)

const (
	// restaurantsTable is the Airtable table holding the restaurant records.
	restaurantsTable = "Restaurantes DB"

	// restaurantsView narrows queries to the curated view.
	restaurantsView = "viw6z7g5ZZs3mpy3S"

	// targetCount is how many ranked results a search aims to return.
	targetCount = 10

	// initialRadiusKm, radiusStepKm and maxRadiusKm bound the expansion loop:
	// at most maxRadiusKm/radiusStepKm backend queries per center.
	initialRadiusKm = 0.5
	radiusStepKm    = 0.5
	maxRadiusKm     = 2.0

	// centerKeyPrecision is the geohash precision used to normalize a search
	// center into a cache-key component. Precision 7 ≈ ±76 m, well below the
	// smallest radius step.
	centerKeyPrecision = 7
)

// Restaurant is the public shape of one search result.
type Restaurant struct {
	Titulo         string  `json:"titulo"`
	Descripcion    string  `json:"descripcion"`
	RangoDePrecios string  `json:"rango_de_precios"`
	URL            string  `json:"url"`
	Puntuacion     float64 `json:"puntuacion_bistrohunter"`
	Distancia      string  `json:"distancia"`
	// OpcionesAlimentarias is included only when the search carried a diet
	// filter.
	OpcionesAlimentarias string `json:"opciones_alimentarias,omitempty"`
}

// Service runs the restaurant search: resolve a center, expand the bounding
// box until enough records accumulate, rank by distance and shape the output.
type Service struct {
	store    airtable.Lister
	resolver *Resolver
	cache    *cache.Cache
}

// NewService creates a Service. The cache memoizes whole per-center searches;
// pass nil to disable memoization (tests).
func NewService(store airtable.Lister, resolver *Resolver, c *cache.Cache) *Service {
	return &Service{store: store, resolver: resolver, cache: c}
}

// Search executes the full pipeline for one request.
//
// Location precedence: explicit zones are geocoded one by one and each gets
// its own expansion; otherwise explicit coordinates are used directly;
// otherwise the city itself is geocoded. A failed zone/city resolution is
// fatal (ErrZoneNotFound / ErrCityNotFound); a failed backend query inside
// the expansion loop only costs that radius step.
//
// An empty result after the radius ceiling is a normal outcome, not an error.
func (s *Service) Search(ctx context.Context, crit Criteria) ([]Restaurant, error) {
	static := filterFormula(crit)

	if len(crit.Zones) > 0 {
		return s.searchZones(ctx, crit, static)
	}

	center, err := s.resolver.ResolveCenter(ctx, crit)
	if err != nil {
		return nil, err
	}
	records, err := s.expand(ctx, center, static)
	if err != nil {
		return nil, err
	}
	return shape(records, &center, crit.Diet != ""), nil
}

// searchZones runs one expansion per zone and merges the results. Zones that
// fail to geocode are skipped unless every zone fails, which surfaces as
// ErrZoneNotFound. Each zone's slice stays ranked against its own center; the
// merged set is capped at zones × targetCount.
func (s *Service) searchZones(ctx context.Context, crit Criteria, static airtable.Formula) ([]Restaurant, error) {
	var (
		out      []Restaurant
		seen     = make(map[string]struct{})
		resolved int
		lastErr  error
	)

	for _, zone := range crit.Zones {
		center, err := s.resolver.ResolveZone(ctx, zone, crit.City)
		if err != nil {
			if IsNotFound(err) {
				log.Printf("search: skipping zone %q: %v", zone, err)
				lastErr = err
				continue
			}
			return nil, err
		}
		resolved++

		records, err := s.expand(ctx, center, static)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			out = append(out, shapeOne(rec, &center, crit.Diet != ""))
		}
	}

	if resolved == 0 {
		return nil, lastErr
	}
	if limit := len(crit.Zones) * targetCount; len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// expand is the radius-expansion loop around one center. Each step queries
// the store with the static predicate plus the current bounding box and
// merges new records by ID. The loop stops when targetCount records have
// accumulated or the radius ceiling is passed, then ranks the survivors by
// ascending distance to the center and truncates.
func (s *Service) expand(ctx context.Context, center geo.Point, static airtable.Formula) ([]airtable.Record, error) {
	key := expandKey(center, static)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.([]airtable.Record), nil
		}
	}

	var (
		accumulated []airtable.Record
		seen        = make(map[string]struct{})
	)

	for radius := initialRadiusKm; radius <= maxRadiusKm; radius += radiusStepKm {
		// Abort before the next outbound call if the caller is gone.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("search: expand: %w", err)
		}

		box, err := geo.BoundingBoxAround(center, radius)
		if err != nil {
			return nil, fmt.Errorf("search: expand: %w", err)
		}

		records, err := s.store.ListRecords(ctx, restaurantsTable, airtable.Query{
			Formula:       airtable.Render(withBoundingBox(static, box)),
			SortField:     airtable.FieldScore,
			SortDirection: "desc",
			MaxRecords:    targetCount,
			View:          restaurantsView,
		})
		if err != nil {
			// One dead step must not kill the search; widen and retry.
			log.Printf("search: query at radius %.1f km failed: %v", radius, err)
			continue
		}

		for _, rec := range records {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			accumulated = append(accumulated, rec)
		}

		if len(accumulated) >= targetCount {
			break
		}
	}

	sortByDistance(accumulated, center)
	if len(accumulated) > targetCount {
		accumulated = accumulated[:targetCount]
	}

	if s.cache != nil {
		s.cache.Set(key, accumulated)
	}
	return accumulated, nil
}

// expandKey is the memoization key for one per-center search: the operation
// name, the geohash-normalized center and the rendered static predicate.
func expandKey(center geo.Point, static airtable.Formula) string {
	return fmt.Sprintf("search.expand:%s:%s",
		geohash.EncodeWithPrecision(center.Lat, center.Lng, centerKeyPrecision),
		airtable.Render(static))
}

// sortByDistance orders records by ascending great-circle distance to ref.
// Records without coordinates sink to the end.
func sortByDistance(records []airtable.Record, ref geo.Point) {
	sort.SliceStable(records, func(i, j int) bool {
		di, iOK := recordDistance(records[i], ref)
		dj, jOK := recordDistance(records[j], ref)
		if iOK != jOK {
			return iOK
		}
		return di < dj
	})
}

// recordDistance computes the distance from ref to a record's raw location.
func recordDistance(rec airtable.Record, ref geo.Point) (float64, bool) {
	lat, latOK := rec.FloatField(airtable.FieldLocationLat)
	lng, lngOK := rec.FloatField(airtable.FieldLocationLng)
	if !latOK || !lngOK {
		return 0, false
	}
	return geo.HaversineKm(ref, geo.Point{Lat: lat, Lng: lng}), true
}

// shape projects records into the public result shape.
func shape(records []airtable.Record, ref *geo.Point, withDiet bool) []Restaurant {
	out := make([]Restaurant, len(records))
	for i, rec := range records {
		out[i] = shapeOne(rec, ref, withDiet)
	}
	return out
}

// shapeOne maps one record's field map into the public shape. The distance is
// formatted to two decimals, or marked not-computed when there is no
// reference point or the record lacks coordinates.
func shapeOne(rec airtable.Record, ref *geo.Point, withDiet bool) Restaurant {
	r := Restaurant{
		Titulo:         rec.StringField(airtable.FieldTitle, "Sin título"),
		Descripcion:    rec.StringField(airtable.FieldMessage, "Sin descripción"),
		RangoDePrecios: rec.StringField(airtable.FieldPriceRange, "No especificado"),
		URL:            rec.StringField(airtable.FieldURL, "No especificado"),
		Distancia:      "No calculada",
	}
	if score, ok := rec.FloatField(airtable.FieldScore); ok {
		r.Puntuacion = score
	}
	if ref != nil {
		if d, ok := recordDistance(rec, *ref); ok {
			r.Distancia = fmt.Sprintf("%.2f km", d)
		}
	}
	if withDiet {
		r.OpcionesAlimentarias = rec.StringField(airtable.FieldDietaryOptions, "No especificado")
	}
	return r
}
