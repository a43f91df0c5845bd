package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/resona/api/internal/model"
)

// Pinned model versions for the Replicate-backed conversion providers.
const (
	amphionSVCVersion = "9a0a53e1e51dd71e741a5a78fa6c3440e92dba508b54bcf4b5b4b0e1d0d2b8f4"
	rvcV2Version      = "6b9b1c3f5e2f8e4a7d1c9b0a3f6e8d2c5a7b9e1f4c6d8a0b2e4f6a8c0d2e4f6a"
)

// replicateInputBuilder maps generic job input to a model's input document.
type replicateInputBuilder func(input *model.JobInput) map[string]interface{}

// ReplicateAdapter drives one Replicate model via the predictions API.
type ReplicateAdapter struct {
	httpClient *http.Client
	baseURL    string
	version    string
	buildInput replicateInputBuilder
}

func NewReplicateAdapter(httpClient *http.Client, baseURL, version string, buildInput replicateInputBuilder) *ReplicateAdapter {
	return &ReplicateAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		version:    version,
		buildInput: buildInput,
	}
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // starting|processing|succeeded|failed|canceled
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	Logs   string          `json:"logs"`
}

func (a *ReplicateAdapter) Submit(ctx context.Context, apiKey string, input *model.JobInput) (*SubmitResult, error) {
	payload := map[string]interface{}{
		"version": a.version,
		"input":   a.buildInput(input),
	}

	var pred replicatePrediction
	if err := a.do(ctx, apiKey, http.MethodPost, "/v1/predictions", payload, &pred); err != nil {
		return nil, err
	}
	if pred.ID == "" {
		return nil, fmt.Errorf("replicate returned no prediction id")
	}
	return &SubmitResult{ProviderJobID: pred.ID}, nil
}

func (a *ReplicateAdapter) CheckStatus(ctx context.Context, apiKey string, providerJobID string) (*Status, error) {
	var pred replicatePrediction
	path := "/v1/predictions/" + providerJobID
	if err := a.do(ctx, apiKey, http.MethodGet, path, nil, &pred); err != nil {
		return nil, err
	}

	st := &Status{}
	if pred.Logs != "" {
		st.Logs = strings.Split(strings.TrimSpace(pred.Logs), "\n")
	}

	switch pred.Status {
	case "starting":
		st.State = StatePending
	case "processing":
		st.State = StateProcessing
		st.Progress = progressFromLogs(st.Logs)
	case "succeeded":
		st.State = StateCompleted
		st.Progress = 100
		url, err := outputURL(pred.Output)
		if err != nil {
			return nil, err
		}
		if url == "" {
			st.State = StateFailed
			st.Error = "no output in prediction"
		}
		st.OutputURL = url
	case "failed", "canceled":
		st.State = StateFailed
		st.Error = pred.Error
		if st.Error == "" {
			st.Error = "prediction " + pred.Status
		}
	default:
		return nil, fmt.Errorf("replicate returned unknown status %q", pred.Status)
	}
	return st, nil
}

// outputURL handles both output shapes Replicate models use: a single URL
// string or a list of URLs (first one wins).
func outputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", nil
		}
		return list[0], nil
	}
	return "", fmt.Errorf("unrecognized prediction output: %s", string(raw))
}

func (a *ReplicateAdapter) do(ctx context.Context, apiKey, method, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	log.Printf("[Replicate] → %s %s", method, path)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Printf("[Replicate] ✗ %s %s — request failed: %v", method, path, err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Replicate] ← %d %s %s", resp.StatusCode, method, path)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("replicate API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func buildAmphionInput(input *model.JobInput) map[string]interface{} {
	doc := map[string]interface{}{
		"source_audio":  input.SourceAudioURL,
		"target_singer": input.TargetSinger,
	}
	if input.PitchShift != 0 {
		doc["pitch_shift"] = input.PitchShift
	}
	return doc
}

func buildRVCInput(input *model.JobInput) map[string]interface{} {
	doc := map[string]interface{}{
		"song_input":   input.SourceAudioURL,
		"rvc_model":    input.RVCModelURL,
		"pitch_change": input.PitchShift,
	}
	return doc
}

// PresetSingers is the Amphion SVC target catalog surfaced to clients.
var PresetSingers = []string{
	"female-pop-1",
	"female-pop-2",
	"female-soul-1",
	"male-pop-1",
	"male-pop-2",
	"male-rock-1",
	"male-soul-1",
	"male-opera-1",
}
