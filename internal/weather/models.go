package weather

import "fmt"

// Location is the fixed field coordinate the weather source is queried for.
type Location struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// Key returns the "lat,lon" form used in provider URLs and logs.
func (l Location) Key() string {
	return fmt.Sprintf("%g,%g", l.Lat, l.Lon)
}

// Observation is the part of the daily weather that feeds the classifier.
// The zero value is the default used when no provider answers.
type Observation struct {
	Precip   float64 `json:"precip"`
	WindGust float64 `json:"windgust"`
}
