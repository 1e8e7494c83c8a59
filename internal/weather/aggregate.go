package weather

// AggregateObservations averages the observations of every provider that answered.
// An empty input yields the zero observation.
func AggregateObservations(obs []Observation) Observation {
	if len(obs) == 0 {
		return Observation{}
	}

	var sumPrecip, sumGust float64
	for _, o := range obs {
		sumPrecip += o.Precip
		sumGust += o.WindGust
	}

	n := float64(len(obs))
	return Observation{
		Precip:   sumPrecip / n,
		WindGust: sumGust / n,
	}
}
