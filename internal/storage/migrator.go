package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/resona/api/internal/model"
)

// StorageResolver supplies a user's durable-storage settings, nil when none
// are configured.
type StorageResolver interface {
	StorageFor(ctx context.Context, ownerID string) (*model.StorageSettings, error)
}

// Migrator copies a provider's ephemeral audio URL into the owner's durable
// storage. The destination key is derived from the job id, so re-running a
// migration overwrites the same object rather than duplicating it.
type Migrator struct {
	resolver     StorageResolver
	httpClient   *http.Client
	bunnyBaseURL string
	timeout      time.Duration
}

func NewMigrator(resolver StorageResolver, bunnyBaseURL string, timeout time.Duration) *Migrator {
	return &Migrator{
		resolver:     resolver,
		httpClient:   &http.Client{Timeout: timeout},
		bunnyBaseURL: bunnyBaseURL,
		timeout:      timeout,
	}
}

// MigrationResult is the outcome of one attempt.
type MigrationResult struct {
	Outcome Outcome
	URL     string // durable URL when Outcome == OutcomeStored
	Err     error  // cause when Outcome == OutcomeFailed
}

// Migrate fetches sourceURL and uploads it under key in the owner's storage.
// Never returns an error for the skipped and failed cases; a status check
// must not fail because storage did.
func (m *Migrator) Migrate(ctx context.Context, ownerID, sourceURL, key string) MigrationResult {
	settings, err := m.resolver.StorageFor(ctx, ownerID)
	if err != nil {
		return MigrationResult{Outcome: OutcomeFailed, Err: err}
	}
	if settings == nil {
		return MigrationResult{Outcome: OutcomeSkipped}
	}

	client, err := m.clientFor(settings)
	if err != nil {
		return MigrationResult{Outcome: OutcomeFailed, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	body, contentType, err := m.download(ctx, sourceURL)
	if err != nil {
		log.Printf("[Migrator] ✗ download %s: %v", sourceURL, err)
		return MigrationResult{Outcome: OutcomeFailed, Err: err}
	}
	defer body.Close()

	url, err := client.Upload(ctx, key, body, contentType)
	if err != nil {
		log.Printf("[Migrator] ✗ upload %s: %v", key, err)
		return MigrationResult{Outcome: OutcomeFailed, Err: err}
	}

	log.Printf("[Migrator] stored %s → %s", sourceURL, url)
	return MigrationResult{Outcome: OutcomeStored, URL: url}
}

func (m *Migrator) clientFor(settings *model.StorageSettings) (Client, error) {
	switch settings.Kind {
	case model.StorageKindBunny:
		if settings.Bunny == nil {
			return nil, fmt.Errorf("bunny storage configuration incomplete")
		}
		return NewBunnyClient(m.httpClient, m.bunnyBaseURL, settings.Bunny), nil
	case model.StorageKindS3:
		if settings.S3 == nil {
			return nil, fmt.Errorf("s3 storage configuration incomplete")
		}
		return NewS3Client(settings.S3)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", settings.Kind)
	}
}

func (m *Migrator) download(ctx context.Context, sourceURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch source audio: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("source fetch failed (status %d)", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "text/") {
		contentType = "application/octet-stream"
	}
	return resp.Body, contentType, nil
}

// MigrationKey builds the canonical destination key for a job's output.
func MigrationKey(kind model.JobKind, jobID string) string {
	switch kind {
	case model.JobKindVoiceClone:
		return fmt.Sprintf("voice-embeddings/%s.safetensors", jobID)
	case model.JobKindVoiceConversion:
		return fmt.Sprintf("voice-conversions/%s.mp3", jobID)
	default:
		return fmt.Sprintf("music/%s.mp3", jobID)
	}
}
