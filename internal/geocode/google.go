// Package geocode resolves address strings into coordinates through the
// Google Maps Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/uncovercity/BistroHunter/internal/geo"
)

const (
	// geocodeAPIURL is the Google Maps Geocoding API endpoint.
	geocodeAPIURL = "https://maps.googleapis.com/maps/api/geocode/json"

	// geocodeTimeout is the maximum duration for a geocoding call.
	geocodeTimeout = 5 * time.Second

	// countryComponent restricts every lookup to Spain, the only market the
	// restaurant table covers.
	countryComponent = "country:ES"

	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second
)

// ErrNoResults is returned when the geocoder answers with ZERO_RESULTS or an
// empty result list. Callers translate it into their own not-found errors.
var ErrNoResults = errors.New("geocode: no results")

// Geocoder resolves a free-form address into a coordinate pair.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
}

// GoogleGeocoder implements Geocoder using the Google Maps Geocoding API.
type GoogleGeocoder struct {
	apiKey     string
	httpClient *http.Client
	// apiURL is the geocoding endpoint. Overrideable in tests.
	apiURL string
}

// NewGoogleGeocoder creates a Geocoder backed by the Google Maps API.
// apiKey must have the Geocoding API enabled.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &GoogleGeocoder{
		apiKey: apiKey,
		apiURL: geocodeAPIURL,
		httpClient: &http.Client{
			Timeout:   geocodeTimeout,
			Transport: transport,
		},
	}
}

// Geocode resolves address to the first result's location. Lookups are
// country-restricted to Spain. Returns ErrNoResults when the API reports
// ZERO_RESULTS, and an error for any other non-OK status.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (geo.Point, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", g.apiKey)
	params.Set("components", countryComponent)

	reqCtx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, g.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode: create request: %w", err)
	}

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode: http: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode: read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return geo.Point{}, fmt.Errorf("geocode: status %d: %s", httpResp.StatusCode, string(respBytes))
	}

	var payload struct {
		Status  string `json:"status"`
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBytes, &payload); err != nil {
		return geo.Point{}, fmt.Errorf("geocode: unmarshal response: %w", err)
	}

	switch payload.Status {
	case "OK":
		// fall through
	case "ZERO_RESULTS":
		return geo.Point{}, ErrNoResults
	default:
		return geo.Point{}, fmt.Errorf("geocode: api status %q", payload.Status)
	}
	if len(payload.Results) == 0 {
		return geo.Point{}, ErrNoResults
	}

	loc := payload.Results[0].Geometry.Location
	return geo.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
