package service

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/resona/api/internal/apperr"
	"github.com/resona/api/internal/model"
	"github.com/resona/api/internal/provider"
	"github.com/resona/api/internal/storage"
	"github.com/resona/api/internal/store"
)

// CredentialResolver supplies decrypted per-provider keys.
type CredentialResolver interface {
	APIKeyFor(ctx context.Context, ownerID string, p model.Provider) (string, error)
}

// AdapterRegistry resolves (kind, provider) to an adapter.
type AdapterRegistry interface {
	Lookup(kind model.JobKind, p model.Provider) (provider.Adapter, error)
}

// Migrator moves ephemeral output into durable storage, best-effort.
type Migrator interface {
	Migrate(ctx context.Context, ownerID, sourceURL, key string) storage.MigrationResult
}

// AccessGate answers whether a user may submit jobs.
type AccessGate interface {
	HasPlatformAccess(ctx context.Context, ownerID string) (bool, error)
}

// JobService is the job lifecycle manager: it orchestrates
// submit → poll → reconcile → durable-storage migration for every job kind.
// All job execution happens on the provider's infrastructure; this service
// only observes and records.
type JobService struct {
	store       *store.Store
	resolver    CredentialResolver
	registry    AdapterRegistry
	migrator    Migrator
	gate        AccessGate
	enforceGate bool
}

func NewJobService(st *store.Store, resolver CredentialResolver, registry AdapterRegistry, migrator Migrator, gate AccessGate, enforceGate bool) *JobService {
	return &JobService{
		store:       st,
		resolver:    resolver,
		registry:    registry,
		migrator:    migrator,
		gate:        gate,
		enforceGate: enforceGate,
	}
}

// Submit validates input, resolves credentials, submits to the provider and
// persists the new job row. Validation and credential failures happen before
// any network call and create no row. Synchronous providers complete (and
// attempt migration) inside this call.
func (s *JobService) Submit(ctx context.Context, ownerID string, kind model.JobKind, p model.Provider, input *model.JobInput, title string) (*model.SubmitResponse, error) {
	if s.enforceGate && s.gate != nil {
		ok, err := s.gate.HasPlatformAccess(ctx, ownerID)
		if err != nil {
			return nil, apperr.Internal(err, "failed to check platform access")
		}
		if !ok {
			return nil, apperr.Forbidden("platform access required")
		}
	}

	if err := validateInput(kind, p, input); err != nil {
		return nil, err
	}

	var sourceJobID *string
	if kind == model.JobKindVoiceConversion {
		source, err := s.resolveConversionSource(ctx, ownerID, input)
		if err != nil {
			return nil, err
		}
		sourceJobID = &source.ID
		input.SourceAudioURL = *source.OutputURL
		if title == "" {
			title = conversionTitle(source, input)
		}
	}
	if title == "" {
		title = defaultTitle(kind, input)
	}

	apiKey, err := s.resolver.APIKeyFor(ctx, ownerID, p)
	if err != nil {
		return nil, apperr.Internal(err, "failed to resolve credentials")
	}
	if apiKey == "" {
		return nil, apperr.Credential("no API key configured for %s", p)
	}

	adapter, err := s.registry.Lookup(kind, p)
	if err != nil {
		return nil, apperr.Validation("unsupported provider %s for %s", p, kind)
	}

	result, err := adapter.Submit(ctx, apiKey, input)
	if err != nil {
		return nil, apperr.Transient(err, "provider submission failed")
	}

	job := &model.Job{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Kind:          kind,
		Provider:      p,
		ProviderJobID: result.ProviderJobID,
		Status:        model.JobStatusProcessing,
		Title:         title,
		InputParams:   *input,
		SourceJobID:   sourceJobID,
		CreatedAt:     time.Now().UTC(),
	}

	// Synchronous providers collapse submit+execute+complete into one call;
	// the row is inserted already terminal, migration attempt included.
	if result.Final != nil {
		s.applyFinal(ctx, job, result.Final)
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, apperr.Internal(err, "failed to save job")
	}

	log.Printf("[Jobs] submitted %s %s/%s (provider job %s)", job.ID, kind, p, job.ProviderJobID)

	return &model.SubmitResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// applyFinal folds a synchronous provider's terminal status into a job that
// has not been persisted yet.
func (s *JobService) applyFinal(ctx context.Context, job *model.Job, final *provider.Status) {
	if final.State == provider.StateFailed {
		job.Status = model.JobStatusFailed
		msg := final.Error
		if msg == "" {
			msg = "generation failed"
		}
		job.Error = &msg
		return
	}

	outputURL := final.OutputURL
	stored := false
	if outputURL != "" {
		res := s.migrator.Migrate(ctx, job.OwnerID, outputURL, storage.MigrationKey(job.Kind, job.ID))
		if res.Outcome == storage.OutcomeStored {
			outputURL = res.URL
			stored = true
		}
	}

	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.OutputURL = &outputURL
	job.OutputStored = stored
	if final.VoiceID != "" {
		v := final.VoiceID
		job.VoiceID = &v
	}
	if final.PreviewURL != "" {
		p := final.PreviewURL
		job.PreviewURL = &p
	}
}

// CheckStatus reconciles the provider's current truth into the job row.
// Terminal jobs are answered from the store without any provider call.
// Transient provider failures leave the row untouched and surface to the
// poller for a silent retry.
func (s *JobService) CheckStatus(ctx context.Context, ownerID, jobID string) (*model.StatusResponse, error) {
	job, err := s.getJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		return statusResponse(job), nil
	}

	apiKey, err := s.resolver.APIKeyFor(ctx, ownerID, job.Provider)
	if err != nil {
		return nil, apperr.Internal(err, "failed to resolve credentials")
	}
	if apiKey == "" {
		return nil, apperr.Credential("no API key configured for %s", job.Provider)
	}

	adapter, err := s.registry.Lookup(job.Kind, job.Provider)
	if err != nil {
		return nil, apperr.Internal(err, "no adapter for job")
	}

	st, err := adapter.CheckStatus(ctx, apiKey, job.ProviderJobID)
	if err != nil {
		return nil, apperr.Transient(err, "provider status check failed")
	}

	switch st.State {
	case provider.StatePending, provider.StateProcessing:
		// Status is monotonic: a provider queue report never moves a row
		// that already reached processing back to pending.
		status := job.Status
		if st.State == provider.StateProcessing {
			status = model.JobStatusProcessing
		}
		if err := s.store.UpdateProgress(ctx, ownerID, jobID, status, st.Progress); err != nil {
			return nil, apperr.Internal(err, "failed to update progress")
		}
		job.Status = status
		job.Progress = st.Progress

	case provider.StateCompleted:
		outputURL := st.OutputURL
		stored := false
		if outputURL != "" {
			// Best-effort: a migration failure never fails the job, the
			// ephemeral URL stands in.
			res := s.migrator.Migrate(ctx, ownerID, outputURL, storage.MigrationKey(job.Kind, job.ID))
			if res.Outcome == storage.OutcomeStored {
				outputURL = res.URL
				stored = true
			}
		}
		var voiceID, previewURL *string
		if st.VoiceID != "" {
			v := st.VoiceID
			voiceID = &v
		}
		if st.PreviewURL != "" {
			p := st.PreviewURL
			previewURL = &p
		}
		if err := s.store.CompleteJob(ctx, ownerID, jobID, outputURL, stored, voiceID, previewURL); err != nil {
			return nil, apperr.Internal(err, "failed to complete job")
		}
		job.Status = model.JobStatusCompleted
		job.Progress = 100
		job.OutputURL = &outputURL
		job.OutputStored = stored
		job.VoiceID = voiceID
		job.PreviewURL = previewURL
		log.Printf("[Jobs] %s completed (stored=%v)", jobID, stored)

	case provider.StateFailed:
		// The provider reporting failure is a successful check that revealed
		// bad news: recorded on the row, not raised to the caller.
		msg := st.Error
		if msg == "" {
			msg = "job failed"
		}
		if err := s.store.FailJob(ctx, ownerID, jobID, msg); err != nil {
			return nil, apperr.Internal(err, "failed to record failure")
		}
		job.Status = model.JobStatusFailed
		job.Error = &msg
		log.Printf("[Jobs] %s failed: %s", jobID, msg)
	}

	return statusResponse(job), nil
}

// List returns the owner's jobs, most-recent-first.
func (s *JobService) List(ctx context.Context, ownerID string, filter model.ListFilter) (*model.ListResponse, error) {
	jobs, err := s.store.ListJobs(ctx, ownerID, filter)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list jobs")
	}
	total, err := s.store.CountJobs(ctx, ownerID, filter)
	if err != nil {
		return nil, apperr.Internal(err, "failed to count jobs")
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	return &model.ListResponse{Jobs: jobs, Total: total}, nil
}

// Active returns the owner's non-terminal jobs, for the client poll loop.
func (s *JobService) Active(ctx context.Context, ownerID string) ([]*model.Job, error) {
	jobs, err := s.store.ListActiveJobs(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list active jobs")
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	return jobs, nil
}

// Delete removes the local record only; a provider-side job that is still
// running continues unobserved.
// TODO: delete the migrated object from the owner's storage zone as well.
func (s *JobService) Delete(ctx context.Context, ownerID, jobID string) error {
	if err := s.store.DeleteJob(ctx, ownerID, jobID); err != nil {
		if err == store.ErrNotFound {
			return apperr.NotFound("job not found")
		}
		return apperr.Internal(err, "failed to delete job")
	}
	return nil
}

// ToggleFavorite flips the favorite flag.
func (s *JobService) ToggleFavorite(ctx context.Context, ownerID, jobID string) (*model.FavoriteResponse, error) {
	fav, err := s.store.ToggleFavorite(ctx, ownerID, jobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Internal(err, "failed to toggle favorite")
	}
	return &model.FavoriteResponse{JobID: jobID, IsFavorite: fav}, nil
}

// MigrateToDurable is the explicit, user-triggered retry of the migration
// step for a completed job whose automatic migration was skipped or failed.
func (s *JobService) MigrateToDurable(ctx context.Context, ownerID, jobID string) (*model.StoreResponse, error) {
	job, err := s.getJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted || job.OutputURL == nil {
		return nil, apperr.Validation("job not completed")
	}
	if job.OutputStored {
		return nil, apperr.AlreadyStored("output already on durable storage")
	}

	res := s.migrator.Migrate(ctx, ownerID, *job.OutputURL, storage.MigrationKey(job.Kind, job.ID))
	switch res.Outcome {
	case storage.OutcomeSkipped:
		return nil, apperr.NotConfigured("durable storage not configured")
	case storage.OutcomeFailed:
		return nil, apperr.Transient(res.Err, "migration failed")
	}

	if err := s.store.SetOutput(ctx, ownerID, jobID, res.URL, true); err != nil {
		return nil, apperr.Internal(err, "failed to update output reference")
	}
	return &model.StoreResponse{JobID: jobID, OutputURL: res.URL, OutputStored: true}, nil
}

// PresetSingers lists the conversion targets available for amphion-svc.
func (s *JobService) PresetSingers() []string {
	return provider.PresetSingers
}

func (s *JobService) getJob(ctx context.Context, ownerID, jobID string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, ownerID, jobID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.NotFound("job not found")
		}
		return nil, apperr.Internal(err, "failed to load job")
	}
	return job, nil
}

// resolveConversionSource loads and checks the generation a conversion
// derives from: it must exist, belong to the caller, and be completed.
func (s *JobService) resolveConversionSource(ctx context.Context, ownerID string, input *model.JobInput) (*model.Job, error) {
	source, err := s.store.GetJob(ctx, ownerID, input.SourceGenerationID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.NotFound("source track not found")
		}
		return nil, apperr.Internal(err, "failed to load source track")
	}
	if source.Kind != model.JobKindMusicGeneration || source.Status != model.JobStatusCompleted || source.OutputURL == nil {
		return nil, apperr.Validation("source track not found or not completed")
	}
	return source, nil
}

func statusResponse(job *model.Job) *model.StatusResponse {
	return &model.StatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		OutputURL:    job.OutputURL,
		OutputStored: job.OutputStored,
		VoiceID:      job.VoiceID,
		PreviewURL:   job.PreviewURL,
		Error:        job.Error,
	}
}

func conversionTitle(source *model.Job, input *model.JobInput) string {
	base := source.Title
	if base == "" {
		base = "Track"
	}
	target := input.TargetSinger
	if target == "" {
		target = input.RVCModelName
	}
	if target == "" {
		target = "Voice Conversion"
	}
	return base + " - " + target
}

func defaultTitle(kind model.JobKind, input *model.JobInput) string {
	switch kind {
	case model.JobKindVoiceClone:
		return input.Name
	default:
		seed := input.Prompt
		if seed == "" {
			if i := strings.IndexByte(input.Lyrics, '\n'); i > 0 {
				seed = input.Lyrics[:i]
			} else {
				seed = input.Lyrics
			}
		}
		seed = strings.TrimSpace(seed)
		if seed == "" {
			return "Untitled track"
		}
		return truncate(seed, 60)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

// validateInput enforces the provider-specific constraints before any
// network call is made.
func validateInput(kind model.JobKind, p model.Provider, input *model.JobInput) error {
	switch kind {
	case model.JobKindMusicGeneration:
		return validateMusicInput(p, input)
	case model.JobKindVoiceClone:
		return validateCloneInput(p, input)
	case model.JobKindVoiceConversion:
		return validateConversionInput(p, input)
	default:
		return apperr.Validation("unknown job kind %q", kind)
	}
}

func validateMusicInput(p model.Provider, input *model.JobInput) error {
	promptLen := utf8.RuneCountInString(input.Prompt)
	lyricsLen := utf8.RuneCountInString(input.Lyrics)

	switch p {
	case model.ProviderElevenLabs:
		if promptLen < 10 || promptLen > 300 {
			return apperr.Validation("prompt must be 10-300 characters for ElevenLabs")
		}
	case model.ProviderMiniMaxV2:
		if promptLen == 0 || promptLen > 300 {
			return apperr.Validation("prompt is required and must be at most 300 characters for MiniMax v2")
		}
		if lyricsLen == 0 || lyricsLen > 3000 {
			return apperr.Validation("lyrics are required and must be at most 3000 characters for MiniMax v2")
		}
	case model.ProviderMiniMaxV25:
		if lyricsLen == 0 || lyricsLen > 3500 {
			return apperr.Validation("lyrics are required and must be at most 3500 characters for MiniMax v2.5")
		}
		if promptLen > 2000 {
			return apperr.Validation("prompt must be at most 2000 characters for MiniMax v2.5")
		}
	default:
		return apperr.Validation("unsupported music provider %q", p)
	}
	return nil
}

func validateCloneInput(p model.Provider, input *model.JobInput) error {
	if input.Name == "" || utf8.RuneCountInString(input.Name) > 100 {
		return apperr.Validation("name is required and must be at most 100 characters")
	}
	if input.AudioURL == "" {
		return apperr.Validation("audio URL is required")
	}
	switch p {
	case model.ProviderMiniMaxClone:
		if utf8.RuneCountInString(input.PreviewText) > 500 {
			return apperr.Validation("preview text must be at most 500 characters")
		}
	case model.ProviderQwenClone:
		if utf8.RuneCountInString(input.ReferenceText) > 1000 {
			return apperr.Validation("reference text must be at most 1000 characters")
		}
	default:
		return apperr.Validation("unsupported voice clone provider %q", p)
	}
	return nil
}

func validateConversionInput(p model.Provider, input *model.JobInput) error {
	switch p {
	case model.ProviderAmphionSVC:
		if input.TargetSinger == "" {
			return apperr.Validation("target singer is required for Amphion SVC")
		}
	case model.ProviderRVCV2:
		if input.RVCModelURL == "" {
			return apperr.Validation("RVC model URL is required for RVC v2")
		}
	default:
		return apperr.Validation("unsupported voice conversion provider %q", p)
	}
	if input.PitchShift < -12 || input.PitchShift > 12 {
		return apperr.Validation("pitch shift must be between -12 and 12 semitones")
	}
	return nil
}
