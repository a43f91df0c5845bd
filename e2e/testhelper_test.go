package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/resona/api/internal/credential"
	"github.com/resona/api/internal/handler"
	"github.com/resona/api/internal/middleware"
	"github.com/resona/api/internal/provider"
	"github.com/resona/api/internal/service"
	"github.com/resona/api/internal/storage"
	"github.com/resona/api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app  *fiber.App
	auth *middleware.AuthMiddleware
}

// setupApp creates a Fiber app identical to main.go but with an in-memory
// store and mock provider adapters.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	// Redis (fail-open: the rate limiter allows requests when unreachable)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	validate := validator.New()

	resolver := credential.NewResolver(st, nil)
	migrator := storage.NewMigrator(resolver, "http://localhost:0", time.Second)
	registry := provider.NewMockRegistry()

	jobService := service.NewJobService(st, resolver, registry, migrator, st, false)

	musicHandler := handler.NewMusicHandler(jobService, validate)
	voiceHandler := handler.NewVoiceHandler(jobService, validate)
	jobsHandler := handler.NewJobsHandler(jobService)
	settingsHandler := handler.NewSettingsHandler(st, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	music := api.Group("/music")
	music.Post("/generate", rateLimiter.GenerateLimit(10000), musicHandler.Generate)

	voice := api.Group("/voice")
	voice.Post("/clones", rateLimiter.CloneLimit(10000), voiceHandler.CreateClone)
	voice.Post("/conversions", rateLimiter.ConversionLimit(10000), voiceHandler.StartConversion)
	voice.Get("/singers", voiceHandler.ListSingers)

	jobs := api.Group("/jobs")
	jobs.Get("/", jobsHandler.List)
	jobs.Get("/active", jobsHandler.Active)
	jobs.Get("/:jobId/status", jobsHandler.Status)
	jobs.Post("/:jobId/favorite", jobsHandler.Favorite)
	jobs.Post("/:jobId/store", jobsHandler.Store)
	jobs.Delete("/:jobId", jobsHandler.Delete)

	settings := api.Group("/settings", rateLimiter.SettingsLimit(10000))
	settings.Get("/", settingsHandler.Get)
	settings.Put("/keys", settingsHandler.UpdateKeys)
	settings.Put("/storage", settingsHandler.UpdateStorage)
	settings.Delete("/storage", settingsHandler.DeleteStorage)

	return &testApp{app: app, auth: authMiddleware}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := middleware.NewAuthMiddleware(testJWTSecret).GenerateToken("test-user-123", "test@example.com")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// configureKeys stores provider API keys for the test user, so submissions
// pass the credential check.
func configureKeys(t *testing.T, app *fiber.App) {
	t.Helper()
	resp, err := doAuthRequest(t, app, http.MethodPut, "/api/settings/keys",
		`{"falApiKey": "fal-test", "minimaxApiKey": "mm-test", "replicateApiKey": "rep-test"}`)
	if err != nil {
		t.Fatalf("failed to configure keys: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts the error envelope code from a parsed response.
func errorCode(result map[string]interface{}) string {
	if e, ok := result["error"].(map[string]interface{}); ok {
		if code, ok := e["code"].(string); ok {
			return code
		}
	}
	return ""
}

// pollUntilTerminal checks a job's status until it completes or fails.
func pollUntilTerminal(t *testing.T, app *fiber.App, jobID string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 10; i++ {
		resp, err := doAuthRequest(t, app, http.MethodGet, "/api/jobs/"+jobID+"/status", "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		assertStatus(t, resp, http.StatusOK)
		result := parseJSON(t, resp)
		if result["status"] == "completed" || result["status"] == "failed" {
			return result
		}
	}
	t.Fatal("job never reached a terminal state")
	return nil
}
