package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/irrigation-agent/internal/agent"
	httpapi "github.com/i474232898/irrigation-agent/internal/api/http"
	"github.com/i474232898/irrigation-agent/internal/bus"
	"github.com/i474232898/irrigation-agent/internal/config"
	"github.com/i474232898/irrigation-agent/internal/fusion"
	"github.com/i474232898/irrigation-agent/internal/observability"
	"github.com/i474232898/irrigation-agent/internal/schedule"
	"github.com/i474232898/irrigation-agent/internal/scheduler"
	"github.com/i474232898/irrigation-agent/internal/store"
	"github.com/i474232898/irrigation-agent/internal/weather"
	"github.com/i474232898/irrigation-agent/internal/weather/providers"
)

func main() {
	// Load configuration (.env first, then the environment).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound provider and model calls.
	httpClient := &http.Client{
		Timeout: cfg.WeatherTimeout,
	}

	// Providers with resilience (backoff + circuit breaker).
	var provs []weather.Provider
	observer := providers.WithStateObserver(metrics.BreakerStateChanged)
	if cfg.UsesProvider(config.ProviderVisualCrossing) {
		provs = append(provs, providers.NewVisualCrossingProvider(httpClient, cfg.VisualCrossingAPIKey, observer))
	}
	if cfg.UsesProvider(config.ProviderOpenMeteo) {
		provs = append(provs, providers.NewOpenMeteoProvider(httpClient, observer))
	}
	enricher := weather.NewEnricher(provs, cfg.WeatherTimeout, metrics)

	model, err := loadModel(cfg, httpClient)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}

	mqttClient, err := bus.NewClient(bus.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		QoS:      byte(cfg.MQTTQoS),
	})
	if err != nil {
		log.Fatalf("failed to connect to broker: %v", err)
	}
	defer mqttClient.Close()

	orch := agent.New(agent.Config{
		Cache:      store.NewSensorCache(),
		Gate:       schedule.NewGate(),
		Slots:      cfg.Slots,
		Clock:      schedule.SystemClock{Location: cfg.TimeZone},
		Weather:    enricher,
		Classifier: fusion.NewPredictor(model),
		Publisher:  mqttClient,
		Topics: agent.Topics{
			Monitor:    cfg.MonitorTopic,
			Prediction: cfg.PredictionTopic,
		},
		Location: cfg.Location,
		Recorder: metrics,
	})

	if err := mqttClient.Subscribe(cfg.SensorTopic, orch.HandleSensorMessage); err != nil {
		log.Fatalf("failed to subscribe to %s: %v", cfg.SensorTopic, err)
	}

	// Poll loop: monitor republish and slot checks.
	sched := scheduler.New(orch, cfg.PollInterval, cfg.TimeZone)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "irrigation-agent",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if !mqttClient.IsConnected() {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":    status,
			"service":   "irrigation-agent",
			"connected": mqttClient.IsConnected(),
		})
	})

	httpapi.RegisterRoutes(app, orch, metrics.Handler())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// loadModel prefers a remote model server when MODEL_URL is set, otherwise the
// linear model file, writing the sample model on first start.
func loadModel(cfg *config.AppConfig, client *http.Client) (fusion.Model, error) {
	if cfg.ModelURL != "" {
		log.Printf("using remote model at %s", cfg.ModelURL)
		return fusion.NewRemoteModel(cfg.ModelURL, client), nil
	}

	if _, err := os.Stat(cfg.ModelPath); errors.Is(err, os.ErrNotExist) {
		if err := fusion.WriteSampleModel(cfg.ModelPath); err != nil {
			return nil, err
		}
	}
	return fusion.LoadLinearModel(cfg.ModelPath)
}
