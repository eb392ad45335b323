package domain

import "github.com/kailas-cloud/rentsearch/internal/domain/geo"

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the coordinates are within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return geo.ValidateCoordinates(c.Lat, c.Lon)
}

// DistanceTo returns the great-circle distance to other in meters.
func (c Coordinates) DistanceTo(other Coordinates) float64 {
	return geo.Haversine(c.Lat, c.Lon, other.Lat, other.Lon)
}
