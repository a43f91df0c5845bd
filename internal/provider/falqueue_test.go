package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resona/api/internal/model"
)

func newFalServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *FalQueueAdapter) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	adapter := NewFalQueueAdapter(srv.Client(), srv.URL, "fal-ai/minimax-music", parseFalMusicResult)
	return srv, adapter
}

func TestFalSubmit(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]interface{}
	_, adapter := newFalServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/fal-ai/minimax-music" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]string{"request_id": "req-42", "status": "IN_QUEUE"})
	})

	res, err := adapter.Submit(context.Background(), "secret-key", &model.JobInput{
		Prompt: "jazzy",
		Lyrics: "verse one",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.ProviderJobID != "req-42" {
		t.Errorf("expected request id req-42, got %q", res.ProviderJobID)
	}
	if res.Final != nil {
		t.Error("queue submissions must not return a terminal status")
	}
	if gotAuth != "Key secret-key" {
		t.Errorf("expected Key auth header, got %q", gotAuth)
	}
	if gotPayload["prompt"] != "jazzy" || gotPayload["lyrics"] != "verse one" {
		t.Errorf("unexpected payload: %v", gotPayload)
	}
}

func TestFalSubmit_NoRequestID(t *testing.T) {
	_, adapter := newFalServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	})

	if _, err := adapter.Submit(context.Background(), "k", &model.JobInput{Prompt: "x"}); err == nil {
		t.Fatal("expected error for missing request id")
	}
}

func TestFalCheckStatus_Queued(t *testing.T) {
	_, adapter := newFalServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "IN_QUEUE"})
	})

	st, err := adapter.CheckStatus(context.Background(), "k", "req-1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if st.State != StatePending {
		t.Errorf("expected pending, got %v", st.State)
	}
}

func TestFalCheckStatus_ProgressFromLogs(t *testing.T) {
	_, adapter := newFalServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "IN_PROGRESS",
			"logs": []map[string]string{
				{"message": "loading model"},
				{"message": "generating: 17%"},
				{"message": "generating: 63%"},
			},
		})
	})

	st, err := adapter.CheckStatus(context.Background(), "k", "req-1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if st.State != StateProcessing {
		t.Errorf("expected processing, got %v", st.State)
	}
	if st.Progress != 63 {
		t.Errorf("expected progress 63, got %d", st.Progress)
	}
}

func TestFalCheckStatus_CompletedFetchesResult(t *testing.T) {
	_, adapter := newFalServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fal-ai/minimax-music/requests/req-1/status":
			json.NewEncoder(w).Encode(map[string]string{"status": "COMPLETED"})
		case "/fal-ai/minimax-music/requests/req-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"audio": map[string]string{"url": "https://fal.media/out.mp3"},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	st, err := adapter.CheckStatus(context.Background(), "k", "req-1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if st.State != StateCompleted || st.Progress != 100 {
		t.Errorf("expected completed/100, got %v/%d", st.State, st.Progress)
	}
	if st.OutputURL != "https://fal.media/out.mp3" {
		t.Errorf("unexpected output url %q", st.OutputURL)
	}
}

func TestFalCheckStatus_ResultRejection(t *testing.T) {
	_, adapter := newFalServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fal-ai/minimax-music/requests/req-1/status":
			json.NewEncoder(w).Encode(map[string]string{"status": "COMPLETED"})
		case "/fal-ai/minimax-music/requests/req-1":
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"detail": "lyrics too long"})
		}
	})

	st, err := adapter.CheckStatus(context.Background(), "k", "req-1")
	if err != nil {
		t.Fatalf("422 on result is terminal, not an error: %v", err)
	}
	if st.State != StateFailed {
		t.Errorf("expected failed, got %v", st.State)
	}
	if st.Error != "lyrics too long" {
		t.Errorf("unexpected error message %q", st.Error)
	}
}

func TestFalCheckStatus_Failed(t *testing.T) {
	_, adapter := newFalServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "FAILED", "error": "worker crashed"})
	})

	st, err := adapter.CheckStatus(context.Background(), "k", "req-1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if st.State != StateFailed || st.Error != "worker crashed" {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestFalCheckStatus_ServerError(t *testing.T) {
	_, adapter := newFalServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := adapter.CheckStatus(context.Background(), "k", "req-1"); err == nil {
		t.Fatal("expected transport error to surface")
	}
}

func TestParseFalCloneResult(t *testing.T) {
	st := &Status{State: StateCompleted}
	body := []byte(`{
		"custom_voice_id": "voice-7",
		"speaker_embedding": {"url": "https://fal.media/emb.safetensors"},
		"preview_audio": {"url": "https://fal.media/preview.mp3"}
	}`)
	if err := parseFalCloneResult(body, st); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if st.VoiceID != "voice-7" || st.OutputURL != "https://fal.media/emb.safetensors" || st.PreviewURL != "https://fal.media/preview.mp3" {
		t.Errorf("unexpected status %+v", st)
	}

	empty := &Status{State: StateCompleted}
	if err := parseFalCloneResult([]byte(`{}`), empty); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if empty.State != StateFailed {
		t.Error("empty clone result should fail the job")
	}
}

func TestProgressFromLogs(t *testing.T) {
	cases := []struct {
		logs []string
		want int
	}{
		{nil, 0},
		{[]string{"no markers here"}, 0},
		{[]string{"step 1: 10%", "step 2: 80%"}, 80},
		{[]string{"weird 250% overshoot", "then 40%"}, 40},
	}
	for _, c := range cases {
		if got := progressFromLogs(c.logs); got != c.want {
			t.Errorf("progressFromLogs(%v) = %d, want %d", c.logs, got, c.want)
		}
	}
}
