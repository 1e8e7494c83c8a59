package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MQTT_CLIENT_ID", "")
	t.Setenv("PREDICTION_SLOTS", "")
	t.Setenv("WEATHER_PROVIDERS", "")
	t.Setenv("SCHEDULE_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.SensorTopic != "irigasi/sensor_data" || cfg.MonitorTopic != "irigasi/monitor" || cfg.PredictionTopic != "irigasi/prediction" {
		t.Fatalf("unexpected topics: %+v", cfg)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("expected 10s poll interval, got %s", cfg.PollInterval)
	}
	if len(cfg.Slots) != 2 || cfg.Slots[0].Key != "8:15" || cfg.Slots[1].Key != "8:20" {
		t.Fatalf("unexpected slots: %+v", cfg.Slots)
	}
	if cfg.Location.Lat != -6.9237 || cfg.Location.Lon != 106.928726 {
		t.Fatalf("unexpected location: %+v", cfg.Location)
	}
	if !cfg.UsesProvider(ProviderVisualCrossing) || cfg.UsesProvider(ProviderOpenMeteo) {
		t.Fatalf("unexpected providers: %v", cfg.WeatherProviders)
	}
	if len(cfg.MQTTClientID) <= len("irrigation-agent-") {
		t.Fatalf("expected generated client id, got %q", cfg.MQTTClientID)
	}
	if cfg.TimeZone != time.UTC {
		t.Fatalf("expected UTC, got %v", cfg.TimeZone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://broker.local:1883")
	t.Setenv("MQTT_QOS", "1")
	t.Setenv("WEATHER_LAT", "52.52")
	t.Setenv("WEATHER_LON", "13.405")
	t.Setenv("WEATHER_PROVIDERS", "VisualCrossing, openmeteo")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("PREDICTION_SLOTS", "6:00, 18:30")
	t.Setenv("SCHEDULE_TIMEZONE", "Asia/Jakarta")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.MQTTBroker != "tcp://broker.local:1883" || cfg.MQTTQoS != 1 {
		t.Fatalf("unexpected broker settings: %+v", cfg)
	}
	if cfg.Location.Lat != 52.52 || cfg.Location.Lon != 13.405 {
		t.Fatalf("unexpected location: %+v", cfg.Location)
	}
	if !cfg.UsesProvider(ProviderOpenMeteo) || !cfg.UsesProvider(ProviderVisualCrossing) {
		t.Fatalf("unexpected providers: %v", cfg.WeatherProviders)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.PollInterval)
	}
	if len(cfg.Slots) != 2 || cfg.Slots[0].Key != "6:00" || cfg.Slots[1].Key != "18:30" {
		t.Fatalf("unexpected slots: %+v", cfg.Slots)
	}
	if cfg.TimeZone.String() != "Asia/Jakarta" {
		t.Fatalf("unexpected time zone %v", cfg.TimeZone)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"latitude out of range": {"WEATHER_LAT": "91"},
		"latitude not a number": {"WEATHER_LAT": "north"},
		"unknown provider":      {"WEATHER_PROVIDERS": "darksky"},
		"bad poll interval":     {"POLL_INTERVAL": "often"},
		"zero poll interval":    {"POLL_INTERVAL": "0s"},
		"bad slot":              {"PREDICTION_SLOTS": "25:00"},
		"bad time zone":         {"SCHEDULE_TIMEZONE": "Mars/Olympus"},
		"qos out of range":      {"MQTT_QOS": "3"},
		"bad model url":         {"MODEL_URL": "not a url"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SCHEDULE_TIMEZONE", "UTC")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
