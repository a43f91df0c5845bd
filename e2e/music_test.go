package e2e

import (
	"net/http"
	"testing"

	"github.com/resona/api/internal/provider"
)

func validGenerateBody() string {
	return `{
		"provider": "minimax-v2",
		"prompt": "dreamy synthwave with heavy bass",
		"lyrics": "driving home at midnight",
		"title": "Night Drive"
	}`
}

func TestGenerateMusic_Success(t *testing.T) {
	ta := setupApp(t)
	configureKeys(t, ta.app)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/music/generate", validGenerateBody())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["jobId"] == nil || result["jobId"] == "" {
		t.Error("expected 'jobId' in response")
	}
	if result["status"] != "processing" {
		t.Errorf("expected status 'processing', got %v", result["status"])
	}
}

func TestGenerateMusic_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/music/generate", validGenerateBody(), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestGenerateMusic_InvalidBody(t *testing.T) {
	ta := setupApp(t)
	configureKeys(t, ta.app)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/music/generate", `{"provider": "napster"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestGenerateMusic_ProviderLimits(t *testing.T) {
	ta := setupApp(t)
	configureKeys(t, ta.app)

	// elevenlabs requires a 10-300 character prompt
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/music/generate",
		`{"provider": "elevenlabs", "prompt": "short"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
	result := parseJSON(t, resp)
	if errorCode(result) != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", errorCode(result))
	}
}

func TestGenerateMusic_MissingCredential(t *testing.T) {
	ta := setupApp(t)
	// No keys configured for this user.

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/music/generate", validGenerateBody())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
	result := parseJSON(t, resp)
	if errorCode(result) != "CREDENTIAL_ERROR" {
		t.Errorf("expected CREDENTIAL_ERROR, got %v", errorCode(result))
	}
}

func TestGenerateMusic_StatusLifecycle(t *testing.T) {
	ta := setupApp(t)
	configureKeys(t, ta.app)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/music/generate", validGenerateBody())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["jobId"].(string)

	result := pollUntilTerminal(t, ta.app, jobID)
	if result["status"] != "completed" {
		t.Fatalf("expected completed, got %v (error: %v)", result["status"], result["error"])
	}
	if result["outputUrl"] != provider.MockAudioURL {
		t.Errorf("expected mock audio URL, got %v", result["outputUrl"])
	}
	if result["outputStored"] != false {
		t.Error("no storage configured; output must not be marked stored")
	}

	// Terminal answers come from the store and never change.
	for i := 0; i < 3; i++ {
		resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/jobs/"+jobID+"/status", "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		again := parseJSON(t, resp)
		if again["status"] != "completed" || again["outputUrl"] != provider.MockAudioURL {
			t.Errorf("terminal status drifted: %v", again)
		}
	}
}

func TestGenerateMusic_ProviderReportedFailure(t *testing.T) {
	ta := setupApp(t)
	configureKeys(t, ta.app)

	body := `{
		"provider": "minimax-v2",
		"prompt": "dreamy synthwave ` + provider.MockFailInput + `",
		"lyrics": "driving home at midnight"
	}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/music/generate", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["jobId"].(string)

	result := pollUntilTerminal(t, ta.app, jobID)
	if result["status"] != "failed" {
		t.Fatalf("expected failed, got %v", result["status"])
	}
	if result["error"] != provider.MockFailError {
		t.Errorf("expected provider error message, got %v", result["error"])
	}

	// The failure is terminal; a repeat check answers from the store.
	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/jobs/"+jobID+"/status", "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	again := parseJSON(t, resp)
	if again["status"] != "failed" || again["error"] != provider.MockFailError {
		t.Errorf("terminal failure drifted: %v", again)
	}
}

func TestGenerateMusic_SynchronousProvider(t *testing.T) {
	ta := setupApp(t)
	configureKeys(t, ta.app)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/music/generate",
		`{"provider": "minimax-v2.5", "lyrics": "sunrise over the bay"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusAccepted)
	result := parseJSON(t, resp)
	if result["status"] != "completed" {
		t.Errorf("synchronous provider should complete in the submit call, got %v", result["status"])
	}
}
