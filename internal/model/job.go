package model

import "time"

// JobStatus is the lifecycle state of a provider-backed job.
// Transitions are forward-only: pending → processing → {completed, failed}.
// Some providers skip pending entirely.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobKind tags the variant of work a job represents.
type JobKind string

const (
	JobKindMusicGeneration JobKind = "music_generation"
	JobKindVoiceClone      JobKind = "voice_clone"
	JobKindVoiceConversion JobKind = "voice_conversion"
)

var ValidJobKinds = []JobKind{
	JobKindMusicGeneration, JobKindVoiceClone, JobKindVoiceConversion,
}

// Provider identifies the external service that fulfills a job.
type Provider string

const (
	ProviderElevenLabs   Provider = "elevenlabs"
	ProviderMiniMaxV2    Provider = "minimax-v2"
	ProviderMiniMaxV25   Provider = "minimax-v2.5"
	ProviderMiniMaxClone Provider = "minimax-clone"
	ProviderQwenClone    Provider = "qwen-clone"
	ProviderAmphionSVC   Provider = "amphion-svc"
	ProviderRVCV2        Provider = "rvc-v2"
)

// ProvidersForKind lists which providers can fulfill each job kind.
var ProvidersForKind = map[JobKind][]Provider{
	JobKindMusicGeneration: {ProviderElevenLabs, ProviderMiniMaxV2, ProviderMiniMaxV25},
	JobKindVoiceClone:      {ProviderMiniMaxClone, ProviderQwenClone},
	JobKindVoiceConversion: {ProviderAmphionSVC, ProviderRVCV2},
}

// Job is one request to a third-party generative or conversion provider,
// tracked to completion. All variants (generation, clone, conversion) share
// this shape; kind-specific inputs live in InputParams.
type Job struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"-"`
	Kind          JobKind   `json:"kind"`
	Provider      Provider  `json:"provider"`
	ProviderJobID string    `json:"-"` // set once at submit, never mutated
	Status        JobStatus `json:"status"`
	Progress      int       `json:"progress"`
	Title         string    `json:"title,omitempty"`
	InputParams   JobInput  `json:"inputParams"`
	OutputURL     *string   `json:"outputUrl,omitempty"`
	OutputStored  bool      `json:"outputStored"`
	VoiceID       *string   `json:"voiceId,omitempty"`    // voice clones only
	PreviewURL    *string   `json:"previewUrl,omitempty"` // voice clones only
	Error         *string   `json:"error,omitempty"`
	IsFavorite    bool      `json:"isFavorite"`
	SourceJobID   *string   `json:"sourceJobId,omitempty"` // conversions: source generation
	CreatedAt     time.Time `json:"createdAt"`
}

// JobInput is the immutable snapshot of submission parameters, kept for
// display and manual retry. Fields are populated per kind/provider.
type JobInput struct {
	// Music generation
	Prompt string `json:"prompt,omitempty"`
	Lyrics string `json:"lyrics,omitempty"`

	// Voice clone
	Name                string `json:"name,omitempty"`
	Description         string `json:"description,omitempty"`
	AudioURL            string `json:"audioUrl,omitempty"`
	ReferenceText       string `json:"referenceText,omitempty"`
	PreviewText         string `json:"previewText,omitempty"`
	NoiseReduction      bool   `json:"noiseReduction,omitempty"`
	VolumeNormalization bool   `json:"volumeNormalization,omitempty"`

	// Voice conversion
	SourceGenerationID string `json:"sourceGenerationId,omitempty"`
	SourceAudioURL     string `json:"sourceAudioUrl,omitempty"`
	TargetSinger       string `json:"targetSinger,omitempty"`
	RVCModelURL        string `json:"rvcModelUrl,omitempty"`
	RVCModelName       string `json:"rvcModelName,omitempty"`
	PitchShift         int    `json:"pitchShift,omitempty"`
}

// ListFilter narrows Job listings.
type ListFilter struct {
	Kind          JobKind // empty = all kinds
	FavoritesOnly bool
	Limit         int
}
