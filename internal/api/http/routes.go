package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/irrigation-agent/internal/schedule"
	"github.com/i474232898/irrigation-agent/internal/store"
)

// StatusSource exposes the agent state the status API reads from.
type StatusSource interface {
	Cache() *store.SensorCache
	Gate() *schedule.Gate
	Slots() []schedule.Slot
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
// metrics may be nil, in which case /metrics is not served.
func RegisterRoutes(app *fiber.App, src StatusSource, metrics http.Handler) {
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/monitor", func(c *fiber.Ctx) error {
		reading, updatedAt, err := src.Cache().Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no sensor data received yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read sensor data")
		}

		return c.JSON(fiber.Map{
			"monitor":    reading.Snapshot(),
			"reading":    reading,
			"updated_at": updatedAt,
		})
	})

	v1.Get("/schedule", func(c *fiber.Ctx) error {
		var req scheduleQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		slots := src.Slots()
		resp := fiber.Map{
			"slots":   slots,
			"markers": src.Gate().Markers(),
			"fired":   src.Gate().Fired(),
		}

		if !req.At.IsZero() {
			matching := []string{}
			for _, s := range slots {
				if s.Matches(req.At) {
					matching = append(matching, s.Key)
				}
			}
			resp["at"] = req.At
			resp["matching"] = matching
		}

		return c.JSON(resp)
	})
}

// scheduleQuery holds the optional "at" parameter of the schedule endpoint.
type scheduleQuery struct {
	At time.Time
}

func (q *scheduleQuery) bind(c *fiber.Ctx) error {
	atStr := c.Query("at")
	if atStr == "" {
		return nil
	}

	at, err := parseTime(atStr)
	if err != nil {
		return err
	}
	q.At = at
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
