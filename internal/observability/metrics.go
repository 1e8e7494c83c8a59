package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Metrics holds the agent's counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sensorMessages     prometheus.Counter
	decodeFailures     prometheus.Counter
	monitorPublishes   prometheus.Counter
	predictions        prometheus.Counter
	predictionFailures prometheus.Counter
	weatherFallbacks   prometheus.Counter
	publishErrors      *prometheus.CounterVec
	slotFires          *prometheus.CounterVec
	cbState            *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sensorMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigation_sensor_messages_total",
			Help: "Sensor messages accepted into the cache.",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigation_sensor_decode_failures_total",
			Help: "Sensor messages dropped because the payload could not be decoded.",
		}),
		monitorPublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigation_monitor_publishes_total",
			Help: "Monitor snapshots published.",
		}),
		predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigation_predictions_total",
			Help: "Prediction messages published.",
		}),
		predictionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigation_prediction_failures_total",
			Help: "Scheduled predictions skipped because classification failed.",
		}),
		weatherFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "irrigation_weather_fallbacks_total",
			Help: "Weather fetches that fell back to the default observation.",
		}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigation_publish_errors_total",
			Help: "Bus publish failures by topic.",
		}, []string{"topic"}),
		slotFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "irrigation_slot_fires_total",
			Help: "Schedule slot firings by slot key.",
		}, []string{"slot"}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "irrigation_weather_cb_state",
			Help: "Weather provider circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"provider"}),
	}

	m.registry.MustRegister(
		m.sensorMessages,
		m.decodeFailures,
		m.monitorPublishes,
		m.predictions,
		m.predictionFailures,
		m.weatherFallbacks,
		m.publishErrors,
		m.slotFires,
		m.cbState,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SensorMessage() {
	if m == nil {
		return
	}
	m.sensorMessages.Inc()
}

func (m *Metrics) DecodeFailure() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}

func (m *Metrics) MonitorPublished() {
	if m == nil {
		return
	}
	m.monitorPublishes.Inc()
}

func (m *Metrics) PredictionPublished() {
	if m == nil {
		return
	}
	m.predictions.Inc()
}

func (m *Metrics) PredictionFailed() {
	if m == nil {
		return
	}
	m.predictionFailures.Inc()
}

// WeatherFallback satisfies weather.FailureRecorder.
func (m *Metrics) WeatherFallback() {
	if m == nil {
		return
	}
	m.weatherFallbacks.Inc()
}

func (m *Metrics) PublishError(topic string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(topic).Inc()
}

func (m *Metrics) SlotFired(slot string) {
	if m == nil {
		return
	}
	m.slotFires.WithLabelValues(slot).Inc()
}

// BreakerStateChanged records a circuit breaker transition; its signature
// matches providers.StateObserver.
func (m *Metrics) BreakerStateChanged(provider string, _, to gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.cbState.WithLabelValues(provider).Set(v)
}
