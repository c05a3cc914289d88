package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"app/internal/model"
)

const defaultBaseURL = "https://api.replicate.com/v1"

// Model versions per quality tier. Basic maps to Real-ESRGAN, premium to
// Waifu2x, ultra to GFPGAN.
var modelVersions = map[model.Quality]string{
	model.QualityBasic:   "42fed1c4974146d4d2414e2be2c5277c7fcf05fcc972f1a6c68ad1d9f7a55dc2",
	model.QualityPremium: "25c54b7f1eed87a1e5e8ae7d4eaae73a49ec0fafebdab0a8a3ecb4f0b97bd78a",
	model.QualityUltra:   "9283608cc6b7be6b65a8e44983db012355fde4132009bf99d976b2f0896856a3",
}

// Client calls the hosted predictions API: create a prediction, then poll its
// status until it terminates or the poll policy gives up.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	policy     PollPolicy
}

// NewClient creates a provider backed by the real predictions API.
func NewClient(token, baseURL string, policy PollPolicy) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		policy:     policy.normalized(),
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Enhance creates a prediction for the image and polls it to completion.
// Progress checkpoints are driven by provider-reported status, not a fixed
// cadence.
func (c *Client) Enhance(ctx context.Context, imageURL string, scale int, quality model.Quality, onProgress ProgressFunc) (*Result, error) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	onProgress(Progress{Status: "starting", Percent: 0, Message: "Starting enhancement..."})

	pred, err := c.createPrediction(ctx, imageURL, scale, quality)
	if err != nil {
		return nil, err
	}
	onProgress(Progress{Status: "starting", Percent: 10, Message: "Prediction created"})

	output, err := c.pollPrediction(ctx, pred.ID, onProgress)
	if err != nil {
		return nil, err
	}
	onProgress(Progress{Status: "completed", Percent: 100, Message: "Enhancement completed!"})
	return &Result{OutputURL: output}, nil
}

func (c *Client) createPrediction(ctx context.Context, imageURL string, scale int, quality model.Quality) (*prediction, error) {
	version, ok := modelVersions[quality]
	if !ok {
		version = modelVersions[model.QualityBasic]
	}
	payload := map[string]interface{}{
		"version": version,
		"input": map[string]interface{}{
			"image": imageURL,
			"scale": scale,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create prediction request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create prediction: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read prediction response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Message: apiErrorMessage(respBody, resp.StatusCode)}
	}

	var pred prediction
	if err := json.Unmarshal(respBody, &pred); err != nil {
		return nil, fmt.Errorf("decode prediction response: %w", err)
	}
	return &pred, nil
}

// pollPrediction polls until the prediction terminates. Statuses starting and
// processing continue the loop; succeeded returns the output; failed wraps
// the upstream message; exhausting the attempt budget is ErrTimeout.
func (c *Client) pollPrediction(ctx context.Context, id string, onProgress ProgressFunc) (string, error) {
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		pred, err := c.getPrediction(ctx, id)
		if err != nil {
			return "", err
		}

		switch pred.Status {
		case "succeeded":
			return decodeOutput(pred.Output)
		case "failed", "canceled":
			msg := pred.Error
			if msg == "" {
				msg = "unknown error"
			}
			return "", &ProviderError{Message: msg}
		case "starting":
			pct := 10 + attempt*2
			if pct > 30 {
				pct = 30
			}
			onProgress(Progress{Status: "starting", Percent: pct})
		default: // processing
			pct := 30 + attempt*3
			if pct > 90 {
				pct = 90
			}
			onProgress(Progress{Status: "processing", Percent: pct})
		}

		if err := c.policy.Sleep(ctx, c.policy.Interval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("prediction %s did not terminate after %d polls: %w", id, c.policy.MaxAttempts, ErrTimeout)
}

func (c *Client) getPrediction(ctx context.Context, id string) (*prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll prediction %s: %w", id, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Message: apiErrorMessage(body, resp.StatusCode)}
	}

	var pred prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return &pred, nil
}

// decodeOutput handles both output shapes the API returns: a single URL
// string or an array of URLs (first entry wins).
func decodeOutput(raw json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}
	return "", fmt.Errorf("unexpected prediction output shape: %s", string(raw))
}

func apiErrorMessage(body []byte, status int) string {
	var errorResp struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil {
		if errorResp.Detail != "" {
			return errorResp.Detail
		}
		if errorResp.Title != "" {
			return errorResp.Title
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
