// Package telemetry provides anonymous usage tracking via PostHog.
package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
)

// PostHogAPIKey is set at compile time via ldflags.
var PostHogAPIKey string

// TrackingIDProvider is an interface for getting tracking IDs.
type TrackingIDProvider interface {
	GetOrCreateTrackingID() string
}

// Client interface for telemetry operations.
type Client interface {
	Track(event string, properties map[string]interface{})
	Close()
	GetTrackingID() string

	// CLI events
	TrackAppStarted(mode string)
	TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64)
	TrackCLIError(commandName, errorType string)

	// Engine events
	TrackIndexBuilt(rows int, model string, rebuild bool, durationMs int64)
	TrackPairsGenerated(products, pairs int)
	TrackFineTuneCompleted(pairs, epochs int, device string, durationMs int64)
	TrackSearchPerformed(resultCount, topK int, source string)
	TrackEvaluationRun(queries int, hitAt1, mrr float64)

	// MCP events
	TrackMCPToolCalled(toolName string, durationMs int64, success bool)
}

// posthogClient wraps the PostHog SDK.
type posthogClient struct {
	client    posthog.Client
	sessionID string
	mu        sync.Mutex
}

// noopClient does nothing (for disabled telemetry).
type noopClient struct{}

// IsEnabled returns true if an API key was compiled in.
func IsEnabled() bool {
	return PostHogAPIKey != ""
}

// New creates a telemetry client. Tracking is opt-out: disabled turns it
// off, and builds without an API key never track. A nil provider gives a
// fresh ID per session.
func New(provider TrackingIDProvider, disabled bool) Client {
	if disabled || !IsEnabled() {
		return &noopClient{}
	}

	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:  "https://us.i.posthog.com",
		BatchSize: 250,
		Interval:  5 * time.Second,
	})
	if err != nil {
		return &noopClient{}
	}

	var sessionID string
	if provider != nil {
		sessionID = provider.GetOrCreateTrackingID()
	} else {
		sessionID = uuid.New().String()
	}

	return &posthogClient{
		client:    client,
		sessionID: sessionID,
	}
}

// Track sends an event to PostHog.
func (c *posthogClient) Track(event string, properties map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	props := posthog.NewProperties()
	props.Set("$process_person_profile", true)
	props.Set("$geoip_disable", true)

	for k, v := range properties {
		props.Set(k, v)
	}

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.sessionID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes remaining events and closes the client.
func (c *posthogClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.client.Close()
}

// GetTrackingID returns the anonymous tracking ID for the session.
func (c *posthogClient) GetTrackingID() string {
	return c.sessionID
}

// Track is a no-op for disabled telemetry.
func (c *noopClient) Track(event string, properties map[string]interface{}) {}

// Close is a no-op for disabled telemetry.
func (c *noopClient) Close() {}

// GetTrackingID returns empty string for disabled telemetry.
func (c *noopClient) GetTrackingID() string {
	return ""
}

// FileTrackingID keeps the anonymous tracking ID in a file under the data
// directory so it survives between runs.
type FileTrackingID struct {
	Path string
}

// NewFileTrackingID stores the ID in baseDir/tracking_id.
func NewFileTrackingID(baseDir string) *FileTrackingID {
	return &FileTrackingID{Path: filepath.Join(baseDir, "tracking_id")}
}

// GetOrCreateTrackingID implements TrackingIDProvider. When the file
// cannot be written the new ID is still returned for this session.
func (f *FileTrackingID) GetOrCreateTrackingID() string {
	if data, err := os.ReadFile(f.Path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	id := uuid.New().String()
	_ = os.WriteFile(f.Path, []byte(id+"\n"), 0600)
	return id
}
