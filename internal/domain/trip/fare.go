package trip

import "math"

// Flat-rate city tariff. Values are in the smallest currency unit.
const (
	fareBase      = 500.0
	farePerKM     = 120.0
	farePerMinute = 40.0
)

// HaversineKM returns the great-circle distance between two points in km.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0 // Earth radius in km
	a1 := lat1 * math.Pi / 180
	a2 := lat2 * math.Pi / 180
	da := (lat2 - lat1) * math.Pi / 180
	db := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// EstimateDurationMinutes converts a route distance into minutes using a
// simple average-city-speed heuristic.
func EstimateDurationMinutes(distanceKM float64) int {
	const avgSpeedKMH = 21.0
	minutes := (distanceKM / avgSpeedKMH) * 60.0

	// ceil to whole minutes
	m := int(math.Ceil(minutes))
	if m < 1 {
		return 1
	}
	return m
}

// EstimateFare returns base + (distance_km * rate_per_km) + (duration_min * rate_per_min).
func EstimateFare(distanceKM float64, durationMin int) float64 {
	if distanceKM < 0 {
		distanceKM = 0
	}
	if durationMin < 0 {
		durationMin = 0
	}
	return fareBase + farePerKM*distanceKM + farePerMinute*float64(durationMin)
}

// ComputeFinalFare prices a finished trip from the actually driven distance
// and elapsed duration.
func ComputeFinalFare(actualDistanceKM float64, actualDurationMin int) float64 {
	return EstimateFare(actualDistanceKM, actualDurationMin)
}
