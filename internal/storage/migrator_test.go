package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resona/api/internal/model"
)

type staticResolver struct {
	settings *model.StorageSettings
	err      error
}

func (r *staticResolver) StorageFor(ctx context.Context, ownerID string) (*model.StorageSettings, error) {
	return r.settings, r.err
}

func bunnySettings() *model.StorageSettings {
	return &model.StorageSettings{
		Kind: model.StorageKindBunny,
		Bunny: &model.BunnySettings{
			APIKey:      "zone-key",
			StorageZone: "mytracks",
			PullZone:    "mytracks.b-cdn.net",
		},
	}
}

func TestMigrate_StoresToBunny(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer source.Close()

	var uploaded []byte
	var gotKey, gotAccessKey string
	bunny := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotKey = r.URL.Path
		gotAccessKey = r.Header.Get("AccessKey")
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer bunny.Close()

	m := NewMigrator(&staticResolver{settings: bunnySettings()}, bunny.URL, 10*time.Second)
	res := m.Migrate(context.Background(), "user-1", source.URL+"/song.mp3", "music/job-1.mp3")

	require.Equal(t, OutcomeStored, res.Outcome)
	assert.Equal(t, "https://mytracks.b-cdn.net/music/job-1.mp3", res.URL)
	assert.Equal(t, "/mytracks/music/job-1.mp3", gotKey)
	assert.Equal(t, "zone-key", gotAccessKey)
	assert.Equal(t, "mp3-bytes", string(uploaded))
}

func TestMigrate_SkippedWhenUnconfigured(t *testing.T) {
	m := NewMigrator(&staticResolver{settings: nil}, "http://unused", time.Second)
	res := m.Migrate(context.Background(), "user-1", "http://unused/song.mp3", "music/x.mp3")

	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.NoError(t, res.Err)
}

func TestMigrate_FailedOnSourceError(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer source.Close()

	m := NewMigrator(&staticResolver{settings: bunnySettings()}, "http://unused", time.Second)
	res := m.Migrate(context.Background(), "user-1", source.URL+"/song.mp3", "music/x.mp3")

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestMigrate_FailedOnUploadError(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3-bytes"))
	}))
	defer source.Close()

	bunny := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bunny.Close()

	m := NewMigrator(&staticResolver{settings: bunnySettings()}, bunny.URL, time.Second)
	res := m.Migrate(context.Background(), "user-1", source.URL+"/song.mp3", "music/x.mp3")

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestMigrationKey(t *testing.T) {
	assert.Equal(t, "music/j1.mp3", MigrationKey(model.JobKindMusicGeneration, "j1"))
	assert.Equal(t, "voice-conversions/j2.mp3", MigrationKey(model.JobKindVoiceConversion, "j2"))
	assert.Equal(t, "voice-embeddings/j3.safetensors", MigrationKey(model.JobKindVoiceClone, "j3"))
}

func TestBunnyPublicURL_SchemeHandling(t *testing.T) {
	c := NewBunnyClient(http.DefaultClient, "http://storage", &model.BunnySettings{
		APIKey:      "k",
		StorageZone: "zone",
		PullZone:    "https://cdn.example.com/",
	})
	assert.Equal(t, "https://cdn.example.com/music/a.mp3", c.PublicURL("music/a.mp3"))
}
