package geo

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/King47-code/safe-ride-backend/internal/models"
)

// DriverIndex is the minimal interface the handlers need for live driver
// positions.
type DriverIndex interface {
	Nearby(lat, lng float64, limit int) []models.DriverLocation
	Upsert(loc models.DriverLocation)
}

// Index is the in-process DriverIndex used when Redis is not configured.
type Index struct {
	mu      sync.RWMutex
	drivers map[string]models.DriverLocation
}

func NewIndex() *Index {
	return &Index{drivers: make(map[string]models.DriverLocation)}
}

func (g *Index) Upsert(loc models.DriverLocation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	loc.Updated = time.Now()
	g.drivers[loc.DriverID] = loc
}

// naive scan; in prod use geo-hash or H3
func (g *Index) Nearby(lat, lng float64, limit int) []models.DriverLocation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		d    models.DriverLocation
		dist float64
	}
	arr := make([]pair, 0, len(g.drivers))
	for _, d := range g.drivers {
		if !d.Online {
			continue
		}
		dist := DistanceKm(models.Coordinate{Lat: lat, Lng: lng}, d.Loc)
		arr = append(arr, pair{d, dist})
	}
	// partial selection sort for top-N
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]models.DriverLocation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].d)
	}
	return out
}

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between a and b in kilometers.
// Symmetric, and zero when the points coincide.
func DistanceKm(a, b models.Coordinate) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// ValidateCoordinate rejects points outside the WGS 84 bounds.
func ValidateCoordinate(c models.Coordinate) error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", models.ErrInvalidInput)
	}
	if math.IsNaN(c.Lng) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", models.ErrInvalidInput)
	}
	return nil
}
