package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/King47-code/safe-ride-backend/internal/models"
	"github.com/King47-code/safe-ride-backend/internal/observability"
)

// Resolver turns a free-text destination into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, destination string) (models.Coordinate, error)
}

// Geocoder performs forward-geocoding lookups against a Nominatim-style
// HTTP endpoint. Lookups are bounded by the client timeout and the caller's
// context; no result is a user-input problem, everything else is the
// provider's.
type Geocoder struct {
	Endpoint string
	Client   *http.Client
}

func NewGeocoder(endpoint string, timeout time.Duration) *Geocoder {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Geocoder{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

// geocodeHit mirrors the provider's result rows. Nominatim encodes the
// coordinates as strings.
type geocodeHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve queries the provider and returns the highest-ranked match.
// Zero matches wrap models.ErrNotFound; transport errors, non-2xx statuses
// and undecodable payloads wrap models.ErrUpstreamUnavailable.
func (g *Geocoder) Resolve(ctx context.Context, destination string) (models.Coordinate, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return models.Coordinate{}, fmt.Errorf("%w: destination is required", models.ErrInvalidInput)
	}

	start := time.Now()
	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", strings.TrimRight(g.Endpoint, "/"), url.QueryEscape(destination))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: build geocode request: %v", models.ErrUpstreamUnavailable, err)
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		observability.GeocodeRequests.WithLabelValues("error").Inc()
		return models.Coordinate{}, fmt.Errorf("%w: geocode %q: %v", models.ErrUpstreamUnavailable, destination, err)
	}
	defer resp.Body.Close()
	observability.GeocodeDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.GeocodeRequests.WithLabelValues("error").Inc()
		return models.Coordinate{}, fmt.Errorf("%w: geocoder status %d", models.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var hits []geocodeHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		observability.GeocodeRequests.WithLabelValues("error").Inc()
		return models.Coordinate{}, fmt.Errorf("%w: decode geocode payload: %v", models.ErrUpstreamUnavailable, err)
	}
	if len(hits) == 0 {
		observability.GeocodeRequests.WithLabelValues("miss").Inc()
		return models.Coordinate{}, fmt.Errorf("%w: no match for destination %q", models.ErrNotFound, destination)
	}

	lat, latErr := strconv.ParseFloat(hits[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(hits[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		observability.GeocodeRequests.WithLabelValues("error").Inc()
		return models.Coordinate{}, fmt.Errorf("%w: geocoder returned non-numeric coordinates", models.ErrUpstreamUnavailable)
	}
	coord := models.Coordinate{Lat: lat, Lng: lng}
	if err := ValidateCoordinate(coord); err != nil {
		observability.GeocodeRequests.WithLabelValues("error").Inc()
		return models.Coordinate{}, fmt.Errorf("%w: geocoder returned out-of-range coordinates", models.ErrUpstreamUnavailable)
	}
	observability.GeocodeRequests.WithLabelValues("hit").Inc()
	return coord, nil
}
