package model

// UserSettings holds a user's BYOK provider credentials, durable-storage
// configuration, and platform access flag. Key values are stored encrypted;
// decryption happens in the credential resolver.
type UserSettings struct {
	OwnerID         string           `json:"-"`
	FalAPIKey       string           `json:"-"`
	MiniMaxAPIKey   string           `json:"-"`
	ReplicateAPIKey string           `json:"-"`
	Storage         *StorageSettings `json:"storage,omitempty"`
	PlatformAccess  bool             `json:"platformAccess"`
}

// StorageKind selects the durable-storage backend.
type StorageKind string

const (
	StorageKindBunny StorageKind = "bunny"
	StorageKindS3    StorageKind = "s3"
)

// StorageSettings is the user-configured durable storage target.
type StorageSettings struct {
	Kind  StorageKind    `json:"kind" validate:"required,oneof=bunny s3"`
	Bunny *BunnySettings `json:"bunny,omitempty"`
	S3    *S3Settings    `json:"s3,omitempty"`
}

// BunnySettings configures Bunny.net storage-zone uploads.
type BunnySettings struct {
	APIKey      string `json:"apiKey" validate:"required"`
	StorageZone string `json:"storageZone" validate:"required"`
	PullZone    string `json:"pullZone" validate:"required"` // e.g. mytracks.b-cdn.net
}

// S3Settings configures an S3-compatible bucket (R2, MinIO, AWS).
type S3Settings struct {
	Endpoint        string `json:"endpoint" validate:"required,url"`
	AccessKeyID     string `json:"accessKeyId" validate:"required"`
	SecretAccessKey string `json:"secretAccessKey" validate:"required"`
	Bucket          string `json:"bucket" validate:"required"`
	PublicURL       string `json:"publicUrl" validate:"omitempty,url"`
}

// UpdateAPIKeysRequest sets per-provider credentials. Empty fields are left
// unchanged; "-" clears a stored key.
type UpdateAPIKeysRequest struct {
	FalAPIKey       string `json:"falApiKey" validate:"omitempty,max=256"`
	MiniMaxAPIKey   string `json:"minimaxApiKey" validate:"omitempty,max=256"`
	ReplicateAPIKey string `json:"replicateApiKey" validate:"omitempty,max=256"`
}

// SettingsResponse reports which credentials are configured without exposing
// the stored values.
type SettingsResponse struct {
	FalConfigured       bool             `json:"falConfigured"`
	MiniMaxConfigured   bool             `json:"minimaxConfigured"`
	ReplicateConfigured bool             `json:"replicateConfigured"`
	Storage             *StorageSettings `json:"storage,omitempty"`
	PlatformAccess      bool             `json:"platformAccess"`
}
