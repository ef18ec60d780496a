package agro

import (
	"strings"

	"github.com/jfarrand/cropcast/internal/models"
)

// Bounding box for California, the only region the station network covers.
// Empirical constants; override RegionBounds rather than editing these.
const (
	caLatMin = 32.5
	caLatMax = 42.1
	caLonMin = -124.6
	caLonMax = -114.1
)

// RegionBounds describes a station network's coverage area.
type RegionBounds struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
	StateNames     []string
}

// CaliforniaBounds is the default coverage area for station actuals.
var CaliforniaBounds = RegionBounds{
	LatMin: caLatMin, LatMax: caLatMax,
	LonMin: caLonMin, LonMax: caLonMax,
	StateNames: []string{"ca", "california"},
}

// EligibleRegion reports whether station actuals can be requested for the
// location. The state string is checked first, then a "City, ST" suffix on
// the name, then the coordinate bounding box. Callers must treat false as a
// reportable "not available in this region" status, never as an error.
func EligibleRegion(loc models.Location) bool {
	return CaliforniaBounds.Contains(loc)
}

func (b RegionBounds) Contains(loc models.Location) bool {
	state := strings.ToLower(strings.TrimSpace(loc.State))
	for _, name := range b.StateNames {
		if state == name {
			return true
		}
	}
	name := strings.ToLower(strings.TrimSpace(loc.Name))
	for _, st := range b.StateNames {
		if strings.HasSuffix(name, ", "+st) {
			return true
		}
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return false
	}
	return loc.Latitude >= b.LatMin && loc.Latitude <= b.LatMax &&
		loc.Longitude >= b.LonMin && loc.Longitude <= b.LonMax
}
