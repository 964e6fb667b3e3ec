package model

// Location is a GeoJSON-style point with optional descriptive fields.
// Coordinates are ordered [longitude, latitude].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty"`
}

func (l Location) Lng() float64 { return l.Coordinates[0] }
func (l Location) Lat() float64 { return l.Coordinates[1] }

// check returns a message describing the first problem, or "".
func (l *Location) check() string {
	if l.Type == "" {
		l.Type = "Point"
	}
	if l.Type != "Point" {
		return "type must be Point"
	}
	if len(l.Coordinates) != 2 {
		return "coordinates must be [lng, lat]"
	}
	if l.Lng() < -180 || l.Lng() > 180 || l.Lat() < -90 || l.Lat() > 90 {
		return "coordinates out of range"
	}
	return ""
}
