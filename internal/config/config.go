package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/i474232898/irrigation-agent/internal/schedule"
	"github.com/i474232898/irrigation-agent/internal/weather"
)

const (
	ProviderVisualCrossing = "visualcrossing"
	ProviderOpenMeteo      = "openmeteo"
)

type AppConfig struct {
	MQTTBroker   string `validate:"required"`
	MQTTClientID string `validate:"required"`
	MQTTUsername string
	MQTTPassword string
	MQTTQoS      int `validate:"min=0,max=2"`

	SensorTopic     string `validate:"required"`
	MonitorTopic    string `validate:"required"`
	PredictionTopic string `validate:"required"`

	VisualCrossingAPIKey string

	// Location is the field coordinate sent to the weather providers.
	Location weather.Location

	WeatherProviders []string      `validate:"required,min=1,dive,oneof=visualcrossing openmeteo"`
	WeatherTimeout   time.Duration `validate:"gt=0"`

	// PollInterval controls both the monitor republish rate and how often slots are checked.
	PollInterval time.Duration   `validate:"gt=0"`
	Slots        []schedule.Slot `validate:"required,min=1,dive"`
	TimeZone     *time.Location

	ModelPath string
	ModelURL  string `validate:"omitempty,url"`

	Port string `validate:"required"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.MQTTBroker = getenvDefault("MQTT_BROKER", "tcp://test.mosquitto.org:1883")
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "irrigation-agent-"+uuid.NewString())
	cfg.MQTTUsername = os.Getenv("MQTT_USERNAME")
	cfg.MQTTPassword = os.Getenv("MQTT_PASSWORD")
	cfg.MQTTQoS = getenvInt("MQTT_QOS", 0)

	cfg.SensorTopic = getenvDefault("MQTT_TOPIC_SENSOR", "irigasi/sensor_data")
	cfg.MonitorTopic = getenvDefault("MQTT_TOPIC_MONITOR", "irigasi/monitor")
	cfg.PredictionTopic = getenvDefault("MQTT_TOPIC_PREDICTION", "irigasi/prediction")

	cfg.VisualCrossingAPIKey = os.Getenv("VISUALCROSSING_API_KEY")

	lat, err := getenvFloat("WEATHER_LAT", -6.9237)
	if err != nil {
		return nil, err
	}
	lon, err := getenvFloat("WEATHER_LON", 106.928726)
	if err != nil {
		return nil, err
	}
	cfg.Location = weather.Location{Lat: lat, Lon: lon}

	cfg.WeatherProviders = splitList(getenvDefault("WEATHER_PROVIDERS", ProviderVisualCrossing))

	cfg.WeatherTimeout, err = getenvDuration("WEATHER_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", "10s")
	if err != nil {
		return nil, err
	}

	cfg.Slots, err = schedule.ParseSlots(getenvDefault("PREDICTION_SLOTS", "08:15,08:20"))
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTION_SLOTS: %w", err)
	}

	tz := getenvDefault("SCHEDULE_TIMEZONE", "Local")
	cfg.TimeZone, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE: %w", err)
	}

	cfg.ModelPath = getenvDefault("MODEL_PATH", "model/weather_model.json")
	cfg.ModelURL = os.Getenv("MODEL_URL")
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.UsesProvider(ProviderVisualCrossing) && cfg.VisualCrossingAPIKey == "" {
		log.Printf("WARN: VISUALCROSSING_API_KEY is empty; weather features will default to zero")
	}

	return cfg, nil
}

// UsesProvider reports whether name is among the configured weather providers.
func (c *AppConfig) UsesProvider(name string) bool {
	for _, p := range c.WeatherProviders {
		if p == name {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
