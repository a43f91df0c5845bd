package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resona/api/internal/model"
)

func TestGetSettings_EmptyRow(t *testing.T) {
	st := openTestStore(t)

	settings, err := st.GetSettings(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, settings.FalAPIKey)
	assert.Nil(t, settings.Storage)
	assert.False(t, settings.PlatformAccess)
}

func TestUpdateAPIKeys_KeepAndClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpdateAPIKeys(ctx, "user-1", &model.UpdateAPIKeysRequest{
		FalAPIKey:     "fal-key-1",
		MiniMaxAPIKey: "mm-key-1",
	}))

	// Empty fields keep the stored keys.
	require.NoError(t, st.UpdateAPIKeys(ctx, "user-1", &model.UpdateAPIKeysRequest{
		ReplicateAPIKey: "rep-key-1",
	}))

	settings, err := st.GetSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "fal-key-1", settings.FalAPIKey)
	assert.Equal(t, "mm-key-1", settings.MiniMaxAPIKey)
	assert.Equal(t, "rep-key-1", settings.ReplicateAPIKey)

	// "-" clears a key without touching the others.
	require.NoError(t, st.UpdateAPIKeys(ctx, "user-1", &model.UpdateAPIKeysRequest{
		FalAPIKey: "-",
	}))

	settings, err = st.GetSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, settings.FalAPIKey)
	assert.Equal(t, "mm-key-1", settings.MiniMaxAPIKey)
}

func TestUpdateStorageSettings_RoundTripAndClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpdateStorageSettings(ctx, "user-1", &model.StorageSettings{
		Kind: model.StorageKindBunny,
		Bunny: &model.BunnySettings{
			APIKey:      "zone-key",
			StorageZone: "mytracks",
			PullZone:    "mytracks.b-cdn.net",
		},
	}))

	settings, err := st.GetSettings(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, settings.Storage)
	assert.Equal(t, model.StorageKindBunny, settings.Storage.Kind)
	require.NotNil(t, settings.Storage.Bunny)
	assert.Equal(t, "mytracks", settings.Storage.Bunny.StorageZone)

	require.NoError(t, st.UpdateStorageSettings(ctx, "user-1", nil))
	settings, err = st.GetSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, settings.Storage)
}

func TestPlatformAccess(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	access, err := st.HasPlatformAccess(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, access, "no row means no access")

	require.NoError(t, st.SetPlatformAccess(ctx, "user-1", true))
	access, err = st.HasPlatformAccess(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, access)

	require.NoError(t, st.SetPlatformAccess(ctx, "user-1", false))
	access, err = st.HasPlatformAccess(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, access)
}

func TestGetSettings_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT fal_api_key").WillReturnError(assert.AnError)

	st := NewWithDB(db)
	_, err = st.GetSettings(context.Background(), "user-1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
