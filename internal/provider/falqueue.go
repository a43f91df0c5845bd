package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/resona/api/internal/model"
)

// falResultParser extracts the generic status fields from a completed fal.ai
// request's result payload, which is model-specific.
type falResultParser func(body []byte, st *Status) error

// FalQueueAdapter drives one fal.ai queue model. Submissions return a request
// id; status is polled at the queue's status endpoint and the result payload
// is fetched once the request reports COMPLETED.
type FalQueueAdapter struct {
	httpClient *http.Client
	baseURL    string
	modelID    string
	parse      falResultParser
}

func NewFalQueueAdapter(httpClient *http.Client, baseURL, modelID string, parse falResultParser) *FalQueueAdapter {
	return &FalQueueAdapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		modelID:    modelID,
		parse:      parse,
	}
}

func (a *FalQueueAdapter) Submit(ctx context.Context, apiKey string, input *model.JobInput) (*SubmitResult, error) {
	payload := a.buildPayload(input)

	var resp struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	endpoint := fmt.Sprintf("%s/%s", a.baseURL, a.modelID)
	if err := a.post(ctx, apiKey, endpoint, payload, &resp); err != nil {
		return nil, err
	}
	if resp.RequestID == "" {
		return nil, fmt.Errorf("fal queue returned no request id")
	}
	return &SubmitResult{ProviderJobID: resp.RequestID}, nil
}

func (a *FalQueueAdapter) CheckStatus(ctx context.Context, apiKey string, providerJobID string) (*Status, error) {
	var resp struct {
		Status string `json:"status"`
		Logs   []struct {
			Message string `json:"message"`
		} `json:"logs"`
		Error string `json:"error"`
	}
	endpoint := fmt.Sprintf("%s/%s/requests/%s/status?logs=1", a.baseURL, a.modelID, providerJobID)
	if err := a.get(ctx, apiKey, endpoint, &resp); err != nil {
		return nil, err
	}

	st := &Status{}
	for _, l := range resp.Logs {
		st.Logs = append(st.Logs, l.Message)
	}

	switch resp.Status {
	case "IN_QUEUE":
		st.State = StatePending
	case "IN_PROGRESS":
		st.State = StateProcessing
		st.Progress = progressFromLogs(st.Logs)
	case "COMPLETED":
		if err := a.fetchResult(ctx, apiKey, providerJobID, st); err != nil {
			return nil, err
		}
	case "FAILED", "ERROR":
		st.State = StateFailed
		st.Error = resp.Error
		if st.Error == "" {
			st.Error = "request failed"
		}
	default:
		return nil, fmt.Errorf("fal queue returned unknown status %q", resp.Status)
	}
	return st, nil
}

// fetchResult loads the completed request's payload. A request that finished
// with an error surfaces it here rather than on the status endpoint.
func (a *FalQueueAdapter) fetchResult(ctx context.Context, apiKey, providerJobID string, st *Status) error {
	endpoint := fmt.Sprintf("%s/%s/requests/%s", a.baseURL, a.modelID, providerJobID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	body, status, err := a.doRequest(req, apiKey)
	if err != nil {
		return err
	}
	if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
		// Terminal: the model rejected the request after picking it up.
		st.State = StateFailed
		st.Error = errorFromBody(body)
		return nil
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("fal result fetch failed (status %d): %s", status, string(body))
	}

	st.State = StateCompleted
	st.Progress = 100
	return a.parse(body, st)
}

func (a *FalQueueAdapter) buildPayload(input *model.JobInput) map[string]interface{} {
	payload := make(map[string]interface{})
	if input.Prompt != "" {
		payload["prompt"] = input.Prompt
	}
	if input.Lyrics != "" {
		payload["lyrics"] = input.Lyrics
	}
	if input.AudioURL != "" {
		payload["audio_url"] = input.AudioURL
	}
	if input.ReferenceText != "" {
		payload["reference_text"] = input.ReferenceText
	}
	if input.PreviewText != "" {
		payload["text"] = input.PreviewText
	}
	if input.NoiseReduction {
		payload["noise_reduction"] = true
	}
	if input.VolumeNormalization {
		payload["need_volume_normalization"] = true
	}
	return payload
}

func (a *FalQueueAdapter) post(ctx context.Context, apiKey, endpoint string, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return a.doJSON(req, apiKey, result)
}

func (a *FalQueueAdapter) get(ctx context.Context, apiKey, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return a.doJSON(req, apiKey, result)
}

func (a *FalQueueAdapter) doJSON(req *http.Request, apiKey string, result interface{}) error {
	body, status, err := a.doRequest(req, apiKey)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("fal API error (status %d): %s", status, string(body))
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (a *FalQueueAdapter) doRequest(req *http.Request, apiKey string) ([]byte, int, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+apiKey)

	log.Printf("[fal %s] → %s %s", a.modelID, req.Method, req.URL.Path)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Printf("[fal %s] ✗ %s %s — request failed: %v", a.modelID, req.Method, req.URL.Path, err)
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[fal %s] ← %d %s %s", a.modelID, resp.StatusCode, req.Method, req.URL.Path)
	return body, resp.StatusCode, nil
}

type falFile struct {
	URL string `json:"url"`
}

// parseFalMusicResult handles the music models' result payloads.
func parseFalMusicResult(body []byte, st *Status) error {
	var result struct {
		Audio    *falFile `json:"audio"`
		AudioURL string   `json:"audio_url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	switch {
	case result.Audio != nil && result.Audio.URL != "":
		st.OutputURL = result.Audio.URL
	case result.AudioURL != "":
		st.OutputURL = result.AudioURL
	default:
		st.State = StateFailed
		st.Error = "no audio in result"
	}
	return nil
}

// parseFalCloneResult handles the voice-clone models' result payloads.
func parseFalCloneResult(body []byte, st *Status) error {
	var result struct {
		VoiceID          string   `json:"custom_voice_id"`
		SpeakerEmbedding *falFile `json:"speaker_embedding"`
		PreviewAudio     *falFile `json:"preview_audio"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	st.VoiceID = result.VoiceID
	if result.SpeakerEmbedding != nil {
		st.OutputURL = result.SpeakerEmbedding.URL
	}
	if result.PreviewAudio != nil {
		st.PreviewURL = result.PreviewAudio.URL
	}
	if st.VoiceID == "" && st.OutputURL == "" {
		st.State = StateFailed
		st.Error = "no voice in result"
	}
	return nil
}

func errorFromBody(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return "request failed"
}

// progressFromLogs scans provider log lines for the last "NN%" marker.
// Best-effort; 0 when no marker is present.
func progressFromLogs(logs []string) int {
	progress := 0
	for _, line := range logs {
		for i := 0; i < len(line); i++ {
			if line[i] != '%' {
				continue
			}
			j := i
			for j > 0 && line[j-1] >= '0' && line[j-1] <= '9' {
				j--
			}
			if j == i {
				continue
			}
			n := 0
			for _, c := range line[j:i] {
				n = n*10 + int(c-'0')
			}
			if n >= 0 && n <= 100 {
				progress = n
			}
		}
	}
	return progress
}
