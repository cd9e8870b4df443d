package videoprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"flowforge/internal/core/apperrors"
	"flowforge/internal/ports/videojob"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// ClientHTTP talks to the external video-generation provider. It is an
// explicitly constructed, injected client: no package-level state.
type ClientHTTP struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClientHTTP(baseURL, apiKey string, logger *zap.Logger) *ClientHTTP {
	return &ClientHTTP{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

type submitRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

type submitResponse struct {
	OperationID string `json:"operation_id"`
}

type pollResponse struct {
	Status          string  `json:"status"`
	Progress        int     `json:"progress"`
	AssetURL        string  `json:"asset_url"`
	Error           string  `json:"error"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
}

func (c *ClientHTTP) Submit(ctx context.Context, prompt string, opts videojob.SubmitOptions) (videojob.Submission, error) {
	body, err := json.Marshal(submitRequest{
		Prompt:      prompt,
		Model:       opts.Provider,
		AspectRatio: opts.AspectRatio,
		Resolution:  opts.Resolution,
	})
	if err != nil {
		return videojob.Submission{}, err
	}

	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/v1/videos", bytes.NewReader(body), &resp); err != nil {
		return videojob.Submission{}, err
	}
	if resp.OperationID == "" {
		return videojob.Submission{}, apperrors.ThirdParty("provider returned no operation id", nil)
	}
	c.logger.Info("video generation submitted",
		zap.String("provider", opts.Provider),
		zap.String("operation_id", resp.OperationID))
	return videojob.Submission{OperationID: resp.OperationID, Provider: opts.Provider}, nil
}

func (c *ClientHTTP) Poll(ctx context.Context, operationID string) (videojob.PollResult, error) {
	var resp pollResponse
	if err := c.do(ctx, http.MethodGet, "/v1/videos/"+operationID, nil, &resp); err != nil {
		return videojob.PollResult{}, err
	}

	result := videojob.PollResult{Progress: resp.Progress, Reason: resp.Error}
	switch resp.Status {
	case "completed":
		result.Status = videojob.StatusCompleted
		result.AssetLocation = resp.AssetURL
	case "failed", "cancelled":
		result.Status = videojob.StatusFailed
		if result.Reason == "" {
			result.Reason = "provider reported status " + resp.Status
		}
	case "in_progress", "processing":
		result.Status = videojob.StatusProcessing
	default:
		result.Status = videojob.StatusPending
	}
	if meta, err := json.Marshal(resp); err == nil {
		result.MetaJSON = string(meta)
	}
	return result, nil
}

func (c *ClientHTTP) Download(ctx context.Context, assetLocation string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetLocation, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ThirdParty("video download failed", map[string]any{"error": err.Error()})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ThirdParty("video download failed", map[string]any{
			"status_code": resp.StatusCode,
		})
	}
	return io.ReadAll(resp.Body)
}

func (c *ClientHTTP) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.ThirdParty("video provider unreachable", map[string]any{"error": err.Error()})
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.ThirdParty("video provider response unreadable", map[string]any{"error": err.Error()})
	}
	if resp.StatusCode >= 400 {
		return apperrors.ThirdParty("video provider request failed", map[string]any{
			"status_code": resp.StatusCode,
			"body":        truncate(string(payload), 512),
		})
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apperrors.ThirdParty("video provider response malformed", map[string]any{"error": err.Error()})
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
