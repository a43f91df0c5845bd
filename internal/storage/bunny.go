package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/resona/api/internal/model"
)

// BunnyClient uploads into a Bunny.net storage zone over its HTTP API and
// serves the result from the linked pull zone.
type BunnyClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	storageZone string
	pullZone    string
}

func NewBunnyClient(httpClient *http.Client, baseURL string, settings *model.BunnySettings) *BunnyClient {
	return &BunnyClient{
		httpClient:  httpClient,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      settings.APIKey,
		storageZone: settings.StorageZone,
		pullZone:    settings.PullZone,
	}
}

// Upload PUTs the object into the storage zone. Re-uploading the same key
// overwrites in place, which keeps migration retries idempotent.
func (c *BunnyClient) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.storageZone, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("AccessKey", c.apiKey)
	req.Header.Set("Content-Type", contentType)

	log.Printf("[Bunny] → PUT /%s/%s", c.storageZone, key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Bunny] ✗ PUT /%s/%s — request failed: %v", c.storageZone, key, err)
		return "", fmt.Errorf("failed to upload to bunny: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	log.Printf("[Bunny] ← %d PUT /%s/%s", resp.StatusCode, c.storageZone, key)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bunny upload failed (status %d): %s", resp.StatusCode, string(respBody))
	}
	return c.PublicURL(key), nil
}

func (c *BunnyClient) Delete(ctx context.Context, key string) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.storageZone, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("AccessKey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete from bunny: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("bunny delete failed (status %d)", resp.StatusCode)
	}
	return nil
}

func (c *BunnyClient) PublicURL(key string) string {
	host := c.pullZone
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(host, "/"), key)
}
