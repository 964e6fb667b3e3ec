package memory

import (
	"math"
	"strings"
)

// earthRadius matches the sphere used by MySQL ST_Distance_Sphere.
const earthRadius = 6370986.0

// haversine returns the great-circle distance in meters.
func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}

func upper(s string) string { return strings.ToUpper(s) }
