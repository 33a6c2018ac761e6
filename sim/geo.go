package sim

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Distance returns the great-circle (haversine) distance in kilometers
// between a node and an order destination. Symmetric in its arguments and
// bounded by half the Earth's circumference (~20015 km).
func Distance(node *Node, dest OrderDestination) float64 {
	return haversineKm(node.Lat, node.Lon, dest.Lat, dest.Lon)
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// guard against floating-point overshoot before Asin
	if a > 1 {
		a = 1
	}
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
