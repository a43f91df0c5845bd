// Package provider translates generic job requests into provider-specific
// calls and provider responses back into a generic status shape. Every
// provider, including the synchronous ones, presents the same
// submit/check-status contract to the lifecycle manager.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resona/api/internal/config"
	"github.com/resona/api/internal/model"
)

// State is the provider-agnostic view of a job's state.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Status is a provider's current truth about a job. Repeated CheckStatus
// calls with the same id are idempotent and side-effect-free.
type Status struct {
	State      State
	Progress   int
	OutputURL  string
	VoiceID    string // voice clones: provider-side voice id
	PreviewURL string // voice clones: preview audio
	Error      string
	Logs       []string
}

// SubmitResult is the outcome of a submission. Synchronous providers return
// Final non-nil: the terminal status produced in the same call.
type SubmitResult struct {
	ProviderJobID string
	Final         *Status
}

// Adapter is the per-provider contract.
type Adapter interface {
	Submit(ctx context.Context, apiKey string, input *model.JobInput) (*SubmitResult, error)
	CheckStatus(ctx context.Context, apiKey string, providerJobID string) (*Status, error)
}

// Registry resolves (kind, provider) to an adapter. Built once at startup;
// lookups never branch on provider strings anywhere else.
type Registry struct {
	adapters map[string]Adapter
}

func registryKey(kind model.JobKind, provider model.Provider) string {
	return string(kind) + "/" + string(provider)
}

// Lookup returns the adapter for the pair, or an error for unknown pairs.
func (r *Registry) Lookup(kind model.JobKind, provider model.Provider) (Adapter, error) {
	a, ok := r.adapters[registryKey(kind, provider)]
	if !ok {
		return nil, fmt.Errorf("no adapter for %s/%s", kind, provider)
	}
	return a, nil
}

// NewRegistry builds the adapter table from configuration. Mock mode swaps in
// deterministic canned adapters; it is selected by deployment config only.
func NewRegistry(cfg *config.ProvidersConfig) *Registry {
	if cfg.Mock {
		return NewMockRegistry()
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	fal := func(modelID string, parse falResultParser) *FalQueueAdapter {
		return NewFalQueueAdapter(httpClient, cfg.FalBaseURL, modelID, parse)
	}
	replicate := func(version string, buildInput replicateInputBuilder) *ReplicateAdapter {
		return NewReplicateAdapter(httpClient, cfg.ReplicateBaseURL, version, buildInput)
	}

	return &Registry{adapters: map[string]Adapter{
		registryKey(model.JobKindMusicGeneration, model.ProviderMiniMaxV2):  fal("fal-ai/minimax-music", parseFalMusicResult),
		registryKey(model.JobKindMusicGeneration, model.ProviderElevenLabs): fal("fal-ai/elevenlabs/music", parseFalMusicResult),
		registryKey(model.JobKindMusicGeneration, model.ProviderMiniMaxV25): NewMiniMaxDirectAdapter(httpClient, cfg.MiniMaxBaseURL),
		registryKey(model.JobKindVoiceClone, model.ProviderMiniMaxClone):    fal("fal-ai/minimax/voice-clone", parseFalCloneResult),
		registryKey(model.JobKindVoiceClone, model.ProviderQwenClone):       fal("fal-ai/qwen/voice-clone", parseFalCloneResult),
		registryKey(model.JobKindVoiceConversion, model.ProviderAmphionSVC): replicate(amphionSVCVersion, buildAmphionInput),
		registryKey(model.JobKindVoiceConversion, model.ProviderRVCV2):      replicate(rvcV2Version, buildRVCInput),
	}}
}

// NewMockRegistry builds a registry of deterministic mock adapters for
// development and tests.
func NewMockRegistry() *Registry {
	adapters := make(map[string]Adapter)
	for kind, providers := range model.ProvidersForKind {
		for _, p := range providers {
			mock := NewMockAdapter(kind, p)
			adapters[registryKey(kind, p)] = mock
		}
	}
	return &Registry{adapters: adapters}
}
