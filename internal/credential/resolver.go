// Package credential resolves per-user BYOK provider keys and storage
// settings. Key material is stored by the settings store; encryption at rest
// is a collaborator concern, so the resolver applies an injected Decrypter
// (identity by default).
package credential

import (
	"context"

	"github.com/resona/api/internal/model"
	"github.com/resona/api/internal/store"
)

// Decrypter turns a stored key value into plaintext.
type Decrypter func(stored string) (string, error)

// Resolver looks up decrypted credentials for a user.
type Resolver struct {
	store   *store.Store
	decrypt Decrypter
}

func NewResolver(st *store.Store, decrypt Decrypter) *Resolver {
	if decrypt == nil {
		decrypt = func(v string) (string, error) { return v, nil }
	}
	return &Resolver{store: st, decrypt: decrypt}
}

// keyFor maps each provider to the credential that authorizes it.
var keyFor = map[model.Provider]func(*model.UserSettings) string{
	model.ProviderElevenLabs:   func(s *model.UserSettings) string { return s.FalAPIKey },
	model.ProviderMiniMaxV2:    func(s *model.UserSettings) string { return s.FalAPIKey },
	model.ProviderMiniMaxClone: func(s *model.UserSettings) string { return s.FalAPIKey },
	model.ProviderQwenClone:    func(s *model.UserSettings) string { return s.FalAPIKey },
	model.ProviderMiniMaxV25:   func(s *model.UserSettings) string { return s.MiniMaxAPIKey },
	model.ProviderAmphionSVC:   func(s *model.UserSettings) string { return s.ReplicateAPIKey },
	model.ProviderRVCV2:        func(s *model.UserSettings) string { return s.ReplicateAPIKey },
}

// APIKeyFor returns the decrypted key for the provider, or "" if the user has
// not configured one.
func (r *Resolver) APIKeyFor(ctx context.Context, ownerID string, provider model.Provider) (string, error) {
	settings, err := r.store.GetSettings(ctx, ownerID)
	if err != nil {
		return "", err
	}
	pick, ok := keyFor[provider]
	if !ok {
		return "", nil
	}
	stored := pick(settings)
	if stored == "" {
		return "", nil
	}
	return r.decrypt(stored)
}

// StorageFor returns the user's durable-storage settings with decrypted
// secrets, or nil if not configured.
func (r *Resolver) StorageFor(ctx context.Context, ownerID string) (*model.StorageSettings, error) {
	settings, err := r.store.GetSettings(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	st := settings.Storage
	if st == nil {
		return nil, nil
	}

	out := *st
	switch st.Kind {
	case model.StorageKindBunny:
		if st.Bunny == nil {
			return nil, nil
		}
		b := *st.Bunny
		if b.APIKey, err = r.decrypt(b.APIKey); err != nil {
			return nil, err
		}
		out.Bunny = &b
	case model.StorageKindS3:
		if st.S3 == nil {
			return nil, nil
		}
		s3 := *st.S3
		if s3.SecretAccessKey, err = r.decrypt(s3.SecretAccessKey); err != nil {
			return nil, err
		}
		out.S3 = &s3
	default:
		return nil, nil
	}
	return &out, nil
}
