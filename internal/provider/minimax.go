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

// MiniMaxDirectAdapter calls the MiniMax music-2.5 API directly. The API is
// synchronous: the request blocks until generation finishes and returns the
// audio in the response, so Submit synthesizes a terminal Status and
// CheckStatus never reaches the network.
type MiniMaxDirectAdapter struct {
	httpClient *http.Client
	baseURL    string
}

func NewMiniMaxDirectAdapter(httpClient *http.Client, baseURL string) *MiniMaxDirectAdapter {
	return &MiniMaxDirectAdapter{httpClient: httpClient, baseURL: baseURL}
}

type miniMaxResponse struct {
	Data *struct {
		Audio  string `json:"audio"`
		Status int    `json:"status"` // 1 = in progress, 2 = completed
	} `json:"data"`
	ExtraInfo *struct {
		MusicDuration int `json:"music_duration"`
	} `json:"extra_info"`
	BaseResp *struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

func (a *MiniMaxDirectAdapter) Submit(ctx context.Context, apiKey string, input *model.JobInput) (*SubmitResult, error) {
	payload := map[string]interface{}{
		"model":         "music-2.5",
		"lyrics":        input.Lyrics,
		"output_format": "url",
		"audio_setting": map[string]interface{}{
			"sample_rate": 44100,
			"bitrate":     256000,
			"format":      "mp3",
		},
	}
	if input.Prompt != "" {
		payload["prompt"] = input.Prompt
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := a.baseURL + "/v1/music_generation"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	log.Printf("[MiniMax] → POST /v1/music_generation")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Printf("[MiniMax] ✗ request failed: %v", err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[MiniMax] ← %d POST /v1/music_generation", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("minimax API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp miniMaxResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	// The whole round trip is the job; the request id only labels the record.
	result := &SubmitResult{ProviderJobID: fmt.Sprintf("minimax-sync-%d", resp.StatusCode)}
	if id := resp.Header.Get("Trace-Id"); id != "" {
		result.ProviderJobID = id
	}

	if apiResp.BaseResp != nil && apiResp.BaseResp.StatusCode != 0 {
		result.Final = &Status{
			State: StateFailed,
			Error: miniMaxErrorMessage(apiResp.BaseResp.StatusCode, apiResp.BaseResp.StatusMsg),
		}
		return result, nil
	}
	if apiResp.Data == nil || apiResp.Data.Status != 2 {
		result.Final = &Status{State: StateFailed, Error: "generation did not complete"}
		return result, nil
	}
	if apiResp.Data.Audio == "" {
		result.Final = &Status{State: StateFailed, Error: "no audio data in response"}
		return result, nil
	}

	result.Final = &Status{
		State:     StateCompleted,
		Progress:  100,
		OutputURL: apiResp.Data.Audio,
	}
	return result, nil
}

// CheckStatus is never reached for this provider: Submit already returned the
// terminal state, and the lifecycle manager does not poll terminal jobs.
func (a *MiniMaxDirectAdapter) CheckStatus(ctx context.Context, apiKey string, providerJobID string) (*Status, error) {
	return nil, fmt.Errorf("minimax-v2.5 is synchronous; no status endpoint for %s", providerJobID)
}

// miniMaxErrorMessage maps the API's error codes to readable messages.
func miniMaxErrorMessage(code int, msg string) string {
	switch code {
	case 1002:
		return "Rate limit exceeded. Please try again later."
	case 1004:
		return "Authentication failed. Please check your API key."
	case 1008:
		return "Insufficient balance. Please top up your MiniMax account."
	case 1026:
		return "Content flagged for sensitive material."
	case 2013:
		return "Invalid parameters. Please check your input."
	case 2049:
		return "Invalid API key."
	}
	if msg != "" {
		return msg
	}
	return fmt.Sprintf("Unknown error (code: %d)", code)
}
