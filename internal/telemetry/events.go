package telemetry

import (
	"runtime"

	"github.com/asteroid-belt/partmatch/pkg/version"
)

// Event names - CLI
const (
	EventAppStarted         = "app_started"
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
)

// Event names - engine
const (
	EventIndexBuilt        = "index_built"
	EventPairsGenerated    = "pairs_generated"
	EventFineTuneCompleted = "finetune_completed"
	EventSearchPerformed   = "search_performed"
	EventEvaluationRun     = "evaluation_run"
)

// Event names - MCP
const (
	EventMCPToolCalled = "mcp_tool_called"
)

// baseProperties returns common properties for all events.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"os":        runtime.GOOS,
		"arch":      runtime.GOARCH,
		"version":   version.Version,
		"dev_build": version.IsDevBuild(),
	}
}

// TrackAppStarted tracks application startup.
func (c *posthogClient) TrackAppStarted(mode string) {
	props := baseProperties()
	props["mode"] = mode
	c.Track(EventAppStarted, props)
}

// TrackCLICommandExecuted tracks CLI command execution.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	props := baseProperties()
	props["command_name"] = commandName
	props["has_flags"] = hasFlags
	props["execution_duration_ms"] = durationMs
	c.Track(EventCLICommandExecuted, props)
}

// TrackCLIError tracks CLI errors by kind, never by message.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["error_type"] = errorType
	c.Track(EventCLIErrorOccurred, props)
}

// TrackIndexBuilt tracks a published index version.
func (c *posthogClient) TrackIndexBuilt(rows int, model string, rebuild bool, durationMs int64) {
	props := baseProperties()
	props["rows"] = rows
	props["model"] = model
	props["rebuild"] = rebuild
	props["duration_ms"] = durationMs
	c.Track(EventIndexBuilt, props)
}

// TrackPairsGenerated tracks training pair generation.
func (c *posthogClient) TrackPairsGenerated(products, pairs int) {
	props := baseProperties()
	props["products"] = products
	props["pairs"] = pairs
	c.Track(EventPairsGenerated, props)
}

// TrackFineTuneCompleted tracks a finished fine-tuning run.
func (c *posthogClient) TrackFineTuneCompleted(pairs, epochs int, device string, durationMs int64) {
	props := baseProperties()
	props["pairs"] = pairs
	props["epochs"] = epochs
	props["device"] = device
	props["duration_ms"] = durationMs
	c.Track(EventFineTuneCompleted, props)
}

// TrackSearchPerformed tracks a search. Query text is not sent.
func (c *posthogClient) TrackSearchPerformed(resultCount, topK int, source string) {
	props := baseProperties()
	props["result_count"] = resultCount
	props["top_k"] = topK
	props["source"] = source
	c.Track(EventSearchPerformed, props)
}

// TrackEvaluationRun tracks a retrieval evaluation.
func (c *posthogClient) TrackEvaluationRun(queries int, hitAt1, mrr float64) {
	props := baseProperties()
	props["queries"] = queries
	props["hit_at_1"] = hitAt1
	props["mrr"] = mrr
	c.Track(EventEvaluationRun, props)
}

// TrackMCPToolCalled tracks MCP tool invocations.
func (c *posthogClient) TrackMCPToolCalled(toolName string, durationMs int64, success bool) {
	props := baseProperties()
	props["tool_name"] = toolName
	props["duration_ms"] = durationMs
	props["success"] = success
	c.Track(EventMCPToolCalled, props)
}

// --- noopClient implementations (no-ops) ---

func (c *noopClient) TrackAppStarted(mode string)                                                 {}
func (c *noopClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {}
func (c *noopClient) TrackCLIError(commandName, errorType string)                                 {}
func (c *noopClient) TrackIndexBuilt(rows int, model string, rebuild bool, durationMs int64)      {}
func (c *noopClient) TrackPairsGenerated(products, pairs int)                                     {}
func (c *noopClient) TrackFineTuneCompleted(pairs, epochs int, device string, durationMs int64)   {}
func (c *noopClient) TrackSearchPerformed(resultCount, topK int, source string)                   {}
func (c *noopClient) TrackEvaluationRun(queries int, hitAt1, mrr float64)                         {}
func (c *noopClient) TrackMCPToolCalled(toolName string, durationMs int64, success bool)          {}
