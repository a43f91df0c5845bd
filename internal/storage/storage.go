// Package storage migrates ephemeral provider-hosted audio into the user's
// configured durable storage. Migration is best-effort and at-most-once per
// job; failures degrade to the provider's original URL.
package storage

import (
	"context"
	"io"
)

// Client is the object-storage contract shared by the Bunny and S3 backends.
type Client interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Outcome distinguishes "nothing to do" from "tried and failed" so callers
// and tests can tell the three cases apart.
type Outcome string

const (
	OutcomeStored  Outcome = "stored"  // bytes now live at a durable URL
	OutcomeSkipped Outcome = "skipped" // no storage configured; not an error
	OutcomeFailed  Outcome = "failed"  // tried and failed; ephemeral URL stands
)
