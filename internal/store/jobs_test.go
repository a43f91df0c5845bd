package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resona/api/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestJob(ownerID string) *model.Job {
	return &model.Job{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Kind:          model.JobKindMusicGeneration,
		Provider:      model.ProviderMiniMaxV2,
		ProviderJobID: "req-" + uuid.New().String()[:8],
		Status:        model.JobStatusProcessing,
		Title:         "Test Track",
		InputParams:   model.JobInput{Prompt: "upbeat pop", Lyrics: "la la la"},
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGetJob(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := newTestJob("user-1")
	require.NoError(t, st.CreateJob(ctx, job))

	got, err := st.GetJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	assert.Equal(t, "upbeat pop", got.InputParams.Prompt)
	assert.Nil(t, got.OutputURL)
	assert.False(t, got.OutputStored)
}

func TestGetJob_WrongOwner(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := newTestJob("user-1")
	require.NoError(t, st.CreateJob(ctx, job))

	_, err := st.GetJob(ctx, "user-2", job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListJobs_OrderAndFilter(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	older := newTestJob("user-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.CreateJob(ctx, older))

	newer := newTestJob("user-1")
	newer.Kind = model.JobKindVoiceClone
	newer.Provider = model.ProviderQwenClone
	require.NoError(t, st.CreateJob(ctx, newer))

	foreign := newTestJob("user-2")
	require.NoError(t, st.CreateJob(ctx, foreign))

	jobs, err := st.ListJobs(ctx, "user-1", model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, newer.ID, jobs[0].ID, "most recent first")
	assert.Equal(t, older.ID, jobs[1].ID)

	clones, err := st.ListJobs(ctx, "user-1", model.ListFilter{Kind: model.JobKindVoiceClone})
	require.NoError(t, err)
	require.Len(t, clones, 1)
	assert.Equal(t, newer.ID, clones[0].ID)

	total, err := st.CountJobs(ctx, "user-1", model.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestListActiveJobs(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	active := newTestJob("user-1")
	active.CreatedAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, st.CreateJob(ctx, active))

	done := newTestJob("user-1")
	require.NoError(t, st.CreateJob(ctx, done))
	require.NoError(t, st.CompleteJob(ctx, "user-1", done.ID, "https://cdn.example/x.mp3", false, nil, nil))

	jobs, err := st.ListActiveJobs(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, active.ID, jobs[0].ID)
}

func TestUpdateProgress_SkipsTerminalRows(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := newTestJob("user-1")
	require.NoError(t, st.CreateJob(ctx, job))

	require.NoError(t, st.UpdateProgress(ctx, "user-1", job.ID, model.JobStatusProcessing, 55))
	got, err := st.GetJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, got.Progress)

	require.NoError(t, st.FailJob(ctx, "user-1", job.ID, "upstream error"))

	err = st.UpdateProgress(ctx, "user-1", job.ID, model.JobStatusProcessing, 80)
	assert.ErrorIs(t, err, ErrNotFound, "terminal rows never move backward")

	got, err = st.GetJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "upstream error", *got.Error)
}

func TestCompleteJob(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := newTestJob("user-1")
	job.Kind = model.JobKindVoiceClone
	require.NoError(t, st.CreateJob(ctx, job))

	voiceID := "voice-9"
	preview := "https://fal.example/preview.mp3"
	require.NoError(t, st.CompleteJob(ctx, "user-1", job.ID, "https://fal.example/emb.safetensors", true, &voiceID, &preview))

	got, err := st.GetJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.True(t, got.OutputStored)
	require.NotNil(t, got.VoiceID)
	assert.Equal(t, "voice-9", *got.VoiceID)

	// A second terminal transition must not apply.
	err = st.FailJob(ctx, "user-1", job.ID, "too late")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetOutput_OnlyCompletedRows(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := newTestJob("user-1")
	require.NoError(t, st.CreateJob(ctx, job))

	err := st.SetOutput(ctx, "user-1", job.ID, "https://cdn.example/a.mp3", true)
	assert.ErrorIs(t, err, ErrNotFound, "processing rows have no output to swap")

	require.NoError(t, st.CompleteJob(ctx, "user-1", job.ID, "https://ephemeral.example/a.mp3", false, nil, nil))
	require.NoError(t, st.SetOutput(ctx, "user-1", job.ID, "https://cdn.example/a.mp3", true))

	got, err := st.GetJob(ctx, "user-1", job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OutputURL)
	assert.Equal(t, "https://cdn.example/a.mp3", *got.OutputURL)
	assert.True(t, got.OutputStored)
}

func TestToggleFavorite(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := newTestJob("user-1")
	require.NoError(t, st.CreateJob(ctx, job))

	fav, err := st.ToggleFavorite(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.True(t, fav)

	fav, err = st.ToggleFavorite(ctx, "user-1", job.ID)
	require.NoError(t, err)
	assert.False(t, fav)

	_, err = st.ToggleFavorite(ctx, "user-2", job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteJob(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job := newTestJob("user-1")
	require.NoError(t, st.CreateJob(ctx, job))

	assert.ErrorIs(t, st.DeleteJob(ctx, "user-2", job.ID), ErrNotFound)
	require.NoError(t, st.DeleteJob(ctx, "user-1", job.ID))

	_, err := st.GetJob(ctx, "user-1", job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
