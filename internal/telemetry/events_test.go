package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventConstants(t *testing.T) {
	assert.Equal(t, "app_started", EventAppStarted)
	assert.Equal(t, "cli_command_executed", EventCLICommandExecuted)
	assert.Equal(t, "cli_error_occurred", EventCLIErrorOccurred)

	assert.Equal(t, "index_built", EventIndexBuilt)
	assert.Equal(t, "pairs_generated", EventPairsGenerated)
	assert.Equal(t, "finetune_completed", EventFineTuneCompleted)
	assert.Equal(t, "search_performed", EventSearchPerformed)
	assert.Equal(t, "evaluation_run", EventEvaluationRun)

	assert.Equal(t, "mcp_tool_called", EventMCPToolCalled)
}
