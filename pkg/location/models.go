package location

// Location represents the geographical coordinates reported by a provider.
type Location struct {
	Latitude  float64
	Longitude float64
}
