package geo

import "math"

// EarthRadius is the mean spherical radius used for every distance in the
// tool, in meters.
const EarthRadius = 6371000.0

// Haversine returns the great-circle distance in meters between two points
// given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	sinLat := math.Sin(deltaLat / 2)
	sinLon := math.Sin(deltaLon / 2)

	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	c := 2 * math.Asin(math.Sqrt(math.Min(a, 1)))

	return EarthRadius * c
}

// PathLength sums the haversine distance between consecutive points given as
// parallel latitude/longitude slices.
func PathLength(lats, lons []float64) float64 {
	n := min(len(lats), len(lons))
	total := 0.0
	for i := 1; i < n; i++ {
		total += Haversine(lats[i-1], lons[i-1], lats[i], lons[i])
	}
	return total
}
