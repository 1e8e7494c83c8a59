package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/irrigation-agent/internal/fusion"
	"github.com/i474232898/irrigation-agent/internal/schedule"
	"github.com/i474232898/irrigation-agent/internal/sensor"
	"github.com/i474232898/irrigation-agent/internal/store"
	"github.com/i474232898/irrigation-agent/internal/weather"
)

const (
	monitorTopic    = "irigasi/monitor"
	predictionTopic = "irigasi/prediction"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type message struct {
	topic string
	v     any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, message{topic: topic, v: v})
	return nil
}

func (p *fakePublisher) on(topic string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, m := range p.msgs {
		if m.topic == topic {
			out = append(out, m.v)
		}
	}
	return out
}

type fakeWeather struct {
	obs   weather.Observation
	calls int
}

func (w *fakeWeather) Fetch(context.Context, weather.Location) weather.Observation {
	w.calls++
	return w.obs
}

type fakeClassifier struct {
	label fusion.Label
	err   error
	seen  []fusion.FeatureVector
}

func (c *fakeClassifier) Classify(_ context.Context, f fusion.FeatureVector) (fusion.Label, error) {
	c.seen = append(c.seen, f)
	return c.label, c.err
}

type harness struct {
	orch       *Orchestrator
	clock      *fakeClock
	pub        *fakePublisher
	weather    *fakeWeather
	classifier *fakeClassifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:      &fakeClock{now: time.Date(2024, time.March, 1, 7, 0, 0, 0, time.UTC)},
		pub:        &fakePublisher{},
		weather:    &fakeWeather{},
		classifier: &fakeClassifier{label: fusion.LabelPartiallyCloudy},
	}
	h.orch = New(Config{
		Cache:      store.NewSensorCache(),
		Gate:       schedule.NewGate(),
		Slots:      []schedule.Slot{{Key: "8:15", Hour: 8, Minute: 15}, {Key: "8:20", Hour: 8, Minute: 20}},
		Clock:      h.clock,
		Weather:    h.weather,
		Classifier: h.classifier,
		Publisher:  h.pub,
		Topics:     Topics{Monitor: monitorTopic, Prediction: predictionTopic},
		Location:   weather.Location{Lat: -6.9237, Lon: 106.928726},
	})
	return h
}

func TestTickEndToEndAtSlot(t *testing.T) {
	h := newHarness(t)
	h.weather.obs = weather.Observation{Precip: 0, WindGust: 3}
	h.orch.HandleSensorMessage([]byte(`{"temperature": 24, "humidity": 70}`))
	h.clock.Set(time.Date(2024, time.March, 1, 8, 15, 4, 0, time.UTC))

	h.orch.Tick(context.Background())

	monitors := h.pub.on(monitorTopic)
	if len(monitors) != 1 {
		t.Fatalf("expected 1 monitor publish, got %d", len(monitors))
	}
	want := sensor.MonitorSnapshot{Temperature: 24, Humidity: 70, SoilMoisture: 0}
	if got := monitors[0].(sensor.MonitorSnapshot); got != want {
		t.Fatalf("expected monitor %+v, got %+v", want, got)
	}

	preds := h.pub.on(predictionTopic)
	if len(preds) != 1 {
		t.Fatalf("expected 1 prediction publish, got %d", len(preds))
	}
	msg := preds[0].(PredictionMessage)
	if msg.PredictionToday != msg.PredictionTomorrow {
		t.Fatalf("today and tomorrow differ: %+v", msg)
	}
	if msg.PredictionToday != fusion.LabelPartiallyCloudy {
		t.Fatalf("unexpected label %q", msg.PredictionToday)
	}

	if len(h.classifier.seen) != 2 {
		t.Fatalf("expected two classify calls, got %d", len(h.classifier.seen))
	}
	wantFeatures := fusion.FeatureVector{24, 70, 0, 3}
	for _, f := range h.classifier.seen {
		if f != wantFeatures {
			t.Fatalf("expected features %v, got %v", wantFeatures, f)
		}
	}
}

func TestTickPredictsOncePerSlot(t *testing.T) {
	h := newHarness(t)
	h.orch.HandleSensorMessage([]byte(`{"temperature": 24}`))

	for sec := 0; sec < 60; sec += 10 {
		h.clock.Set(time.Date(2024, time.March, 1, 8, 15, sec, 0, time.UTC))
		h.orch.Tick(context.Background())
	}

	if got := len(h.pub.on(predictionTopic)); got != 1 {
		t.Fatalf("expected 1 prediction in the slot minute, got %d", got)
	}
	if got := len(h.pub.on(monitorTopic)); got != 6 {
		t.Fatalf("monitor must be republished every tick, got %d", got)
	}
	if h.weather.calls != 1 {
		t.Fatalf("expected 1 weather fetch, got %d", h.weather.calls)
	}
}

func TestTickWithoutDataSkipsMonitor(t *testing.T) {
	h := newHarness(t)
	h.orch.Tick(context.Background())

	if len(h.pub.msgs) != 0 {
		t.Fatalf("expected no publishes, got %+v", h.pub.msgs)
	}

	// Scheduled predictions still run on zero-valued sensor features.
	h.weather.obs = weather.Observation{Precip: 1.5, WindGust: 12}
	h.clock.Set(time.Date(2024, time.March, 1, 8, 20, 0, 0, time.UTC))
	h.orch.Tick(context.Background())

	if len(h.pub.on(monitorTopic)) != 0 {
		t.Fatal("monitor published without sensor data")
	}
	if len(h.pub.on(predictionTopic)) != 1 {
		t.Fatal("expected a prediction without sensor data")
	}
	if got := h.classifier.seen[0]; got != (fusion.FeatureVector{0, 0, 1.5, 12}) {
		t.Fatalf("unexpected features %v", got)
	}
}

func TestMalformedMessageKeepsPreviousReading(t *testing.T) {
	h := newHarness(t)
	h.orch.HandleSensorMessage([]byte(`{"temperature": 24, "humidity": 70, "soil_moisture": 512}`))
	h.orch.HandleSensorMessage([]byte(`{"temperature": 2`))
	h.orch.HandleSensorMessage([]byte(`null`))

	got := h.orch.Cache().Current()
	if got.Get("temperature") != 24 || got.Get("soil_moisture") != 512 {
		t.Fatalf("malformed message altered the cache: %v", got)
	}
}

func TestClassifierErrorSkipsPublishAndRecovers(t *testing.T) {
	h := newHarness(t)
	h.classifier.err = errors.New("model unavailable")
	h.clock.Set(time.Date(2024, time.March, 1, 8, 15, 0, 0, time.UTC))
	h.orch.Tick(context.Background())

	if len(h.pub.on(predictionTopic)) != 0 {
		t.Fatal("prediction published despite classifier error")
	}

	h.classifier.err = nil
	h.clock.Set(time.Date(2024, time.March, 1, 8, 20, 0, 0, time.UTC))
	h.orch.Tick(context.Background())

	if len(h.pub.on(predictionTopic)) != 1 {
		t.Fatal("expected the next slot to publish")
	}
}

func TestPublishErrorDoesNotStopTicks(t *testing.T) {
	h := newHarness(t)
	h.orch.HandleSensorMessage([]byte(`{"temperature": 24}`))
	h.pub.err = errors.New("broker unreachable")
	h.clock.Set(time.Date(2024, time.March, 1, 8, 15, 0, 0, time.UTC))

	h.orch.Tick(context.Background())

	h.pub.err = nil
	h.clock.Set(time.Date(2024, time.March, 1, 8, 15, 10, 0, time.UTC))
	h.orch.Tick(context.Background())

	if len(h.pub.on(monitorTopic)) != 1 {
		t.Fatal("expected monitor publishing to resume")
	}
	// The slot already fired on the failed tick; there is no retry within the minute.
	if len(h.pub.on(predictionTopic)) != 0 {
		t.Fatal("unexpected prediction retry")
	}
}

func TestConcurrentIngestAndTick(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.orch.HandleSensorMessage([]byte(`{"temperature": 24, "humidity": 70}`))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.orch.Tick(context.Background())
		}
	}()
	wg.Wait()

	for _, v := range h.pub.on(monitorTopic) {
		if snap := v.(sensor.MonitorSnapshot); snap.Temperature != 24 || snap.Humidity != 70 {
			t.Fatalf("observed torn snapshot %+v", snap)
		}
	}
}
