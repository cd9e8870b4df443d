package assetstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"flowforge/internal/core/apperrors"
	assetPort "flowforge/internal/ports/assetstore"

	"go.uber.org/zap"
)

const defaultTimeout = 60 * time.Second

// ClientHTTP uploads generated assets to the external asset store and
// returns the public URL recorded on the post.
type ClientHTTP struct {
	baseURL    string
	privateKey string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClientHTTP(baseURL, privateKey string, logger *zap.Logger) *ClientHTTP {
	return &ClientHTTP{
		baseURL:    baseURL,
		privateKey: privateKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

type uploadResponse struct {
	URL    string `json:"url"`
	FileID string `json:"file_id"`
	Size   int64  `json:"size"`
}

func (c *ClientHTTP) Upload(ctx context.Context, fileName string, data []byte) (assetPort.Upload, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return assetPort.Upload{}, err
	}
	if _, err := part.Write(data); err != nil {
		return assetPort.Upload{}, err
	}
	if err := writer.Close(); err != nil {
		return assetPort.Upload{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files/upload", &body)
	if err != nil {
		return assetPort.Upload{}, err
	}
	req.SetBasicAuth(c.privateKey, "")
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return assetPort.Upload{}, apperrors.ThirdParty("asset store unreachable", map[string]any{"error": err.Error()})
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return assetPort.Upload{}, apperrors.ThirdParty("asset store response unreadable", map[string]any{"error": err.Error()})
	}
	if resp.StatusCode >= 400 {
		return assetPort.Upload{}, apperrors.ThirdParty("asset upload failed", map[string]any{
			"status_code": resp.StatusCode,
		})
	}

	var out uploadResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return assetPort.Upload{}, apperrors.ThirdParty("asset store response malformed", map[string]any{"error": err.Error()})
	}
	if out.URL == "" {
		return assetPort.Upload{}, apperrors.ThirdParty("asset store returned no url", nil)
	}

	c.logger.Info("asset uploaded",
		zap.String("file_name", fileName),
		zap.Int64("size_bytes", out.Size))
	return assetPort.Upload{URL: out.URL, FileID: out.FileID, Size: out.Size}, nil
}
