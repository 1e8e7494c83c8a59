package agent

import (
	"context"
	"log"
	"time"

	"github.com/i474232898/irrigation-agent/internal/fusion"
	"github.com/i474232898/irrigation-agent/internal/schedule"
	"github.com/i474232898/irrigation-agent/internal/sensor"
	"github.com/i474232898/irrigation-agent/internal/store"
	"github.com/i474232898/irrigation-agent/internal/weather"
)

// Publisher sends a JSON payload to a bus topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
}

// WeatherSource returns today's observation; it absorbs its own failures.
type WeatherSource interface {
	Fetch(ctx context.Context, loc weather.Location) weather.Observation
}

// Classifier maps a feature vector to a weather label.
type Classifier interface {
	Classify(ctx context.Context, features fusion.FeatureVector) (fusion.Label, error)
}

// Recorder receives pipeline events. *observability.Metrics implements it.
type Recorder interface {
	SensorMessage()
	DecodeFailure()
	MonitorPublished()
	PredictionPublished()
	PredictionFailed()
	PublishError(topic string)
	SlotFired(slot string)
}

// Topics names the outbound topics.
type Topics struct {
	Monitor    string
	Prediction string
}

// PredictionMessage is published once per fired slot.
type PredictionMessage struct {
	PredictionToday    fusion.Label `json:"prediction_today"`
	PredictionTomorrow fusion.Label `json:"prediction_tomorrow"`
}

// Config wires an Orchestrator.
type Config struct {
	Cache      *store.SensorCache
	Gate       *schedule.Gate
	Slots      []schedule.Slot
	Clock      schedule.Clock
	Weather    WeatherSource
	Classifier Classifier
	Publisher  Publisher
	Topics     Topics
	Location   weather.Location
	Recorder   Recorder

	// PublishTimeout bounds each publish; defaults to 5s.
	PublishTimeout time.Duration
}

// Orchestrator ties ingestion, monitoring and scheduled prediction together.
// HandleSensorMessage runs on the bus delivery goroutine, Tick on the poll loop.
type Orchestrator struct {
	cache      *store.SensorCache
	gate       *schedule.Gate
	slots      []schedule.Slot
	clock      schedule.Clock
	weather    WeatherSource
	classifier Classifier
	publisher  Publisher
	topics     Topics
	location   weather.Location
	recorder   Recorder

	publishTimeout time.Duration
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		cache:          cfg.Cache,
		gate:           cfg.Gate,
		slots:          cfg.Slots,
		clock:          cfg.Clock,
		weather:        cfg.Weather,
		classifier:     cfg.Classifier,
		publisher:      cfg.Publisher,
		topics:         cfg.Topics,
		location:       cfg.Location,
		recorder:       cfg.Recorder,
		publishTimeout: cfg.PublishTimeout,
	}
	if o.cache == nil {
		o.cache = store.NewSensorCache()
	}
	if o.gate == nil {
		o.gate = schedule.NewGate()
	}
	if o.clock == nil {
		o.clock = schedule.SystemClock{}
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.publishTimeout <= 0 {
		o.publishTimeout = 5 * time.Second
	}
	return o
}

// HandleSensorMessage decodes an inbound payload into the cache. A payload that
// does not decode is logged and dropped; the previous reading stays in place.
func (o *Orchestrator) HandleSensorMessage(payload []byte) {
	reading, err := sensor.Decode(payload)
	if err != nil {
		log.Printf("agent: dropping sensor message: %v", err)
		o.recorder.DecodeFailure()
		return
	}

	o.cache.Update(reading)
	o.recorder.SensorMessage()
	log.Printf("agent: received sensor data: %v", reading)
}

// Tick runs one poll iteration: republish the monitor snapshot, then run the
// prediction pipeline if a slot fired.
func (o *Orchestrator) Tick(ctx context.Context) {
	o.publishMonitor(ctx)

	now := o.clock.Now()
	fired := o.gate.ShouldFire(now, o.slots)
	if len(fired) == 0 {
		return
	}
	for _, key := range fired {
		o.recorder.SlotFired(key)
	}
	log.Printf("agent: slot %v fired at %s", fired, now.Format("15:04:05"))

	o.predict(ctx)
}

func (o *Orchestrator) publishMonitor(ctx context.Context) {
	if !o.cache.Populated() {
		return
	}

	snap := o.cache.Current().Snapshot()
	if err := o.publish(ctx, o.topics.Monitor, snap); err != nil {
		log.Printf("agent: monitor publish failed: %v", err)
		return
	}
	o.recorder.MonitorPublished()
	log.Printf("agent: published monitor data: %+v", snap)
}

func (o *Orchestrator) predict(ctx context.Context) {
	current := o.cache.Current()
	obs := o.weather.Fetch(ctx, o.location)

	combined := sensor.Reading{
		"temperature": current.Get("temperature"),
		"humidity":    current.Get("humidity"),
	}
	features := fusion.BuildFeatures(combined, obs)

	today, err := o.classifier.Classify(ctx, features)
	if err != nil {
		log.Printf("agent: prediction skipped: today: %v", err)
		o.recorder.PredictionFailed()
		return
	}

	// No forecast horizon exists yet: tomorrow is classified from today's vector.
	tomorrow, err := o.classifier.Classify(ctx, features)
	if err != nil {
		log.Printf("agent: prediction skipped: tomorrow: %v", err)
		o.recorder.PredictionFailed()
		return
	}

	msg := PredictionMessage{
		PredictionToday:    today,
		PredictionTomorrow: tomorrow,
	}
	if err := o.publish(ctx, o.topics.Prediction, msg); err != nil {
		log.Printf("agent: prediction publish failed: %v", err)
		return
	}
	o.recorder.PredictionPublished()
	log.Printf("agent: published prediction: %+v (features %v)", msg, features)
}

func (o *Orchestrator) publish(ctx context.Context, topic string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, o.publishTimeout)
	defer cancel()

	if err := o.publisher.Publish(ctx, topic, v); err != nil {
		o.recorder.PublishError(topic)
		return err
	}
	return nil
}

// Cache exposes the sensor cache for read-only consumers such as the status API.
func (o *Orchestrator) Cache() *store.SensorCache {
	return o.cache
}

// Gate exposes the schedule gate for read-only consumers such as the status API.
func (o *Orchestrator) Gate() *schedule.Gate {
	return o.gate
}

// Slots returns the configured prediction slots.
func (o *Orchestrator) Slots() []schedule.Slot {
	return o.slots
}

type nopRecorder struct{}

func (nopRecorder) SensorMessage()       {}
func (nopRecorder) DecodeFailure()       {}
func (nopRecorder) MonitorPublished()    {}
func (nopRecorder) PredictionPublished() {}
func (nopRecorder) PredictionFailed()    {}
func (nopRecorder) PublishError(string)  {}
func (nopRecorder) SlotFired(string)     {}
