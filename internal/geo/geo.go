package geo

import "math"

// EarthRadiusM is the mean Earth radius used for all great-circle distances.
const EarthRadiusM = 6371000.0

// Distance returns the great-circle distance in meters between two points
// given in decimal degrees, using the Haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}

	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a marginally above 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// HeadingDelta returns the smallest rotation in degrees, within [0, 180],
// between two compass headings.
func HeadingDelta(h1, h2 float64) float64 {
	d := math.Mod(math.Abs(h1-h2), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return toRadians(deg)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ValidLatitude reports whether lat is a finite latitude in [-90, 90].
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is a finite longitude in [-180, 180].
func ValidLongitude(lng float64) bool {
	return !math.IsNaN(lng) && lng >= -180 && lng <= 180
}
