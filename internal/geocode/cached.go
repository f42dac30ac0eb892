package geocode

import (
	"context"
	"errors"

	"github.com/uncovercity/BistroHunter/internal/cache"
	"github.com/uncovercity/BistroHunter/internal/geo"
)

// CachedGeocoder wraps another Geocoder with the shared TTL cache so repeated
// lookups of the same address skip the outbound call. Not-found answers are
// cached as well: a zone that failed to geocode a minute ago will not resolve
// a minute later, and re-asking the API for it wastes quota.
type CachedGeocoder struct {
	inner Geocoder
	cache *cache.Cache
}

// cachedAnswer is the cache value: either a point or the not-found outcome.
type cachedAnswer struct {
	point    geo.Point
	notFound bool
}

// NewCachedGeocoder wraps inner with a cache-aside layer backed by c.
func NewCachedGeocoder(inner Geocoder, c *cache.Cache) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, cache: c}
}

// Geocode satisfies the Geocoder interface.
func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (geo.Point, error) {
	key := "geocode:" + address
	if v, ok := g.cache.Get(key); ok {
		ans := v.(cachedAnswer)
		if ans.notFound {
			return geo.Point{}, ErrNoResults
		}
		return ans.point, nil
	}

	point, err := g.inner.Geocode(ctx, address)
	switch {
	case err == nil:
		g.cache.Set(key, cachedAnswer{point: point})
	case errors.Is(err, ErrNoResults):
		g.cache.Set(key, cachedAnswer{notFound: true})
	default:
		// Transport failures are transient; never cache them.
	}
	return point, err
}
