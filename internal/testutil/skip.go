// Package testutil provides testing utilities.
package testutil

import (
	"os"
	"testing"
)

// SkipAITests skips the test if RUN_AI_TESTS is not set.
// Use this for tests that call the OpenAI embeddings API.
//
// Run AI tests with: RUN_AI_TESTS=1 OPENAI_API_KEY=... go test ./...
func SkipAITests(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_AI_TESTS") == "" {
		t.Skip("Skipping AI test (set RUN_AI_TESTS=1 to run)")
	}
}

// RedisAddr returns REDIS_ADDR, skipping the test when it is unset.
func RedisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping Redis test (set REDIS_ADDR to run)")
	}
	return addr
}
