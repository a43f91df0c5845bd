package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/resona/api/internal/model"
	"github.com/resona/api/pkg/response"
)

// APIClient is a typed client for the REST API, used by the CLI and by
// integration tooling.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// GenerateMusic submits a music generation job.
func (c *APIClient) GenerateMusic(ctx context.Context, req *model.GenerateMusicRequest) (*model.SubmitResponse, error) {
	var out model.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/music/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateVoiceClone submits a voice clone job.
func (c *APIClient) CreateVoiceClone(ctx context.Context, req *model.CreateVoiceCloneRequest) (*model.SubmitResponse, error) {
	var out model.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/voice/clones", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartVoiceConversion submits a voice conversion job.
func (c *APIClient) StartVoiceConversion(ctx context.Context, req *model.StartVoiceConversionRequest) (*model.SubmitResponse, error) {
	var out model.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/voice/conversions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobStatus fetches (and server-side reconciles) one job's status.
func (c *APIClient) JobStatus(ctx context.Context, jobID string) (*model.StatusResponse, error) {
	var out model.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+jobID+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs fetches the job history.
func (c *APIClient) ListJobs(ctx context.Context) (*model.ListResponse, error) {
	var out model.ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveJobs fetches non-terminal jobs, to seed the poll loop.
func (c *APIClient) ActiveJobs(ctx context.Context) ([]*model.Job, error) {
	var out struct {
		Jobs []*model.Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/jobs/active", nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// StoreJob requests a durable-storage migration retry.
func (c *APIClient) StoreJob(ctx context.Context, jobID string) (*model.StoreResponse, error) {
	var out model.StoreResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+jobID+"/store", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAPIKeys sets provider credentials.
func (c *APIClient) UpdateAPIKeys(ctx context.Context, req *model.UpdateAPIKeysRequest) (*model.SettingsResponse, error) {
	var out model.SettingsResponse
	if err := c.do(ctx, http.MethodPut, "/api/settings/keys", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var envelope response.ErrorResponse
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
			return fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
