package fusion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteModel calls a model server: POST {baseURL}/predict with
// {"features":[...]} and expects {"scores":[...]} back.
type RemoteModel struct {
	baseURL string
	client  *http.Client
}

// NewRemoteModel creates a RemoteModel. A nil client gets a 10s timeout.
func NewRemoteModel(baseURL string, client *http.Client) *RemoteModel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Scores []float64 `json:"scores"`
}

func (m *RemoteModel) Predict(ctx context.Context, features FeatureVector) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Features: features[:]})
	if err != nil {
		return nil, fmt.Errorf("marshal predict req: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model server call failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("model server non-2xx: %s, body: %s", resp.Status, string(data))
	}

	var out predictResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode model server resp: %w", err)
	}
	return out.Scores, nil
}
