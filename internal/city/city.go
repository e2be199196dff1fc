package city

// City is one tracked city with display metadata and the coordinates used by
// the weather ingestion call.
type City struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Tracked is the fixed set of cities the dashboard follows. Slice order is
// display order and every city-keyed response preserves it.
var Tracked = []City{
	{Name: "Dubai", Latitude: 25.276987, Longitude: 55.296249},
	{Name: "Abu Dhabi", Latitude: 24.453884, Longitude: 54.377344},
	{Name: "Sharjah", Latitude: 25.357475, Longitude: 55.391080},
	{Name: "Ajman", Latitude: 25.405216, Longitude: 55.513226},
	{Name: "Ras Al Khaimah", Latitude: 25.789217, Longitude: 55.943036},
}

// Names returns the tracked city names in display order.
func Names() []string {
	names := make([]string, len(Tracked))
	for i, c := range Tracked {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the tracked city with the given name.
func Lookup(name string) (City, bool) {
	for _, c := range Tracked {
		if c.Name == name {
			return c, true
		}
	}
	return City{}, false
}

// IsTracked reports whether name is one of the tracked cities. Readings for
// unknown cities are ignored by every consumer.
func IsTracked(name string) bool {
	_, ok := Lookup(name)
	return ok
}
