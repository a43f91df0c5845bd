package provider

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/resona/api/internal/model"
)

// Mock output constants, stable so development UIs and tests can rely on them.
const (
	MockAudioURL     = "https://mock.resona.dev/audio/sample.mp3"
	MockEmbeddingURL = "https://mock.resona.dev/voices/embedding.safetensors"
	MockPreviewURL   = "https://mock.resona.dev/voices/preview.mp3"
	MockVoiceID      = "mock-voice-001"

	// A submission whose prompt, lyrics or name contains MockFailInput ends
	// in a terminal failure instead of completing.
	MockFailInput = "[mock-fail]"
	MockFailError = "mock generation failed"
)

// MockAdapter returns deterministic canned responses after a small delay and
// never touches the network. Submissions advance pending → processing →
// completed (or failed, when the input carries MockFailInput) across
// successive status checks.
type MockAdapter struct {
	kind     model.JobKind
	provider model.Provider
	delay    time.Duration

	mu     sync.Mutex
	checks map[string]int
	failed map[string]bool
}

func NewMockAdapter(kind model.JobKind, provider model.Provider) *MockAdapter {
	return &MockAdapter{
		kind:     kind,
		provider: provider,
		delay:    50 * time.Millisecond,
		checks:   make(map[string]int),
		failed:   make(map[string]bool),
	}
}

func wantsFailure(input *model.JobInput) bool {
	return strings.Contains(input.Prompt, MockFailInput) ||
		strings.Contains(input.Lyrics, MockFailInput) ||
		strings.Contains(input.Name, MockFailInput)
}

func (a *MockAdapter) Submit(ctx context.Context, apiKey string, input *model.JobInput) (*SubmitResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(a.delay):
	}

	id := "mock-" + uuid.New().String()
	fail := wantsFailure(input)

	a.mu.Lock()
	a.failed[id] = fail
	a.mu.Unlock()

	// The synchronous provider completes inside the submit call, like the
	// real one does.
	if a.provider == model.ProviderMiniMaxV25 {
		final := a.completedStatus()
		if fail {
			final = failedStatus()
		}
		return &SubmitResult{
			ProviderJobID: id,
			Final:         final,
		}, nil
	}
	return &SubmitResult{ProviderJobID: id}, nil
}

func (a *MockAdapter) CheckStatus(ctx context.Context, apiKey string, providerJobID string) (*Status, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(a.delay):
	}

	a.mu.Lock()
	a.checks[providerJobID]++
	n := a.checks[providerJobID]
	fail := a.failed[providerJobID]
	a.mu.Unlock()

	switch n {
	case 1:
		return &Status{State: StatePending}, nil
	case 2:
		return &Status{State: StateProcessing, Progress: 40}, nil
	default:
		if fail {
			return failedStatus(), nil
		}
		return a.completedStatus(), nil
	}
}

func failedStatus() *Status {
	return &Status{State: StateFailed, Error: MockFailError}
}

func (a *MockAdapter) completedStatus() *Status {
	st := &Status{State: StateCompleted, Progress: 100}
	switch a.kind {
	case model.JobKindVoiceClone:
		st.VoiceID = MockVoiceID
		st.OutputURL = MockEmbeddingURL
		st.PreviewURL = MockPreviewURL
	default:
		st.OutputURL = MockAudioURL
	}
	return st
}

// Checks reports how many status checks a job id has received, for tests
// asserting the terminal no-op contract.
func (a *MockAdapter) Checks(providerJobID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.checks[providerJobID]
}
