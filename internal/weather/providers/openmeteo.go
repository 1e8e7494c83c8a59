package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/irrigation-agent/internal/weather"
)

// OpenMeteoProvider implements the weather.Provider interface for the Open-Meteo
// daily forecast. It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, opts ...Option) *OpenMeteoProvider {
	o := applyOptions("https://api.open-meteo.com/v1/forecast", opts)

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: o.baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: o.backoff,
		},
		circuit: newCircuitBreaker("openmeteo", o.observer),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Observation, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
		values.Set("daily", "precipitation_sum,wind_gusts_10m_max")
		values.Set("forecast_days", "1")
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	// Open-Meteo reports wind gusts in km/h, the same unit as Visual Crossing's metric group.
	var payload struct {
		Daily struct {
			PrecipitationSum []*float64 `json:"precipitation_sum"`
			WindGusts10mMax  []*float64 `json:"wind_gusts_10m_max"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if len(payload.Daily.PrecipitationSum) == 0 && len(payload.Daily.WindGusts10mMax) == 0 {
		return weather.Observation{}, fmt.Errorf("%w: no daily values in response", errMalformed)
	}

	var obs weather.Observation
	if len(payload.Daily.PrecipitationSum) > 0 {
		obs.Precip = floatOrZero(payload.Daily.PrecipitationSum[0])
	}
	if len(payload.Daily.WindGusts10mMax) > 0 {
		obs.WindGust = floatOrZero(payload.Daily.WindGusts10mMax[0])
	}
	return obs, nil
}
