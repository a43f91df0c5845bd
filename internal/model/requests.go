package model

import "time"

// GenerateMusicRequest starts a music generation job.
// Provider-specific length rules (prompt/lyrics limits) are enforced by the
// service before any network call; the tags here cover the generic shape.
type GenerateMusicRequest struct {
	Provider Provider `json:"provider" validate:"required,oneof=elevenlabs minimax-v2 minimax-v2.5"`
	Prompt   string   `json:"prompt" validate:"omitempty,max=2000"`
	Lyrics   string   `json:"lyrics" validate:"omitempty,max=3500"`
	Title    string   `json:"title" validate:"omitempty,max=200"`
}

// CreateVoiceCloneRequest starts a voice clone job.
type CreateVoiceCloneRequest struct {
	Provider    Provider `json:"provider" validate:"required,oneof=minimax-clone qwen-clone"`
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Description string   `json:"description" validate:"omitempty,max=500"`
	AudioURL    string   `json:"audioUrl" validate:"required,url"`

	// minimax-clone only
	NoiseReduction      bool   `json:"noiseReduction"`
	VolumeNormalization bool   `json:"volumeNormalization"`
	PreviewText         string `json:"previewText" validate:"omitempty,max=500"`

	// qwen-clone only
	ReferenceText string `json:"referenceText" validate:"omitempty,max=1000"`
}

// StartVoiceConversionRequest starts a voice conversion job for a previously
// completed music generation.
type StartVoiceConversionRequest struct {
	Provider           Provider `json:"provider" validate:"required,oneof=amphion-svc rvc-v2"`
	SourceGenerationID string   `json:"sourceGenerationId" validate:"required"`

	// amphion-svc
	TargetSinger string `json:"targetSinger" validate:"omitempty,max=100"`

	// rvc-v2
	RVCModelURL  string `json:"rvcModelUrl" validate:"omitempty,url"`
	RVCModelName string `json:"rvcModelName" validate:"omitempty,max=100"`

	PitchShift int    `json:"pitchShift" validate:"omitempty,min=-12,max=12"`
	Title      string `json:"title" validate:"omitempty,max=200"`
}

// SubmitResponse is returned by all submit endpoints.
type SubmitResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusResponse is returned by status-check endpoints.
type StatusResponse struct {
	JobID        string    `json:"jobId"`
	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	OutputURL    *string   `json:"outputUrl,omitempty"`
	OutputStored bool      `json:"outputStored"`
	VoiceID      *string   `json:"voiceId,omitempty"`
	PreviewURL   *string   `json:"previewUrl,omitempty"`
	Error        *string   `json:"error,omitempty"`
}

// ListResponse wraps a job listing.
type ListResponse struct {
	Jobs  []*Job `json:"jobs"`
	Total int    `json:"total"`
}

// FavoriteResponse reports the new favorite state after a toggle.
type FavoriteResponse struct {
	JobID      string `json:"jobId"`
	IsFavorite bool   `json:"isFavorite"`
}

// StoreResponse reports the durable-storage state after a migration attempt.
type StoreResponse struct {
	JobID        string `json:"jobId"`
	OutputURL    string `json:"outputUrl"`
	OutputStored bool   `json:"outputStored"`
}

// DeleteResponse acknowledges removal of the local record.
type DeleteResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}
