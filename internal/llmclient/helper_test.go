// File: internal/llmclient/helper_test.go
package llmclient

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/ixlbot/internal/config"
)

// setupTestLogger returns a logger whose entries can be inspected.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// getValidLLMConfig returns a valid LLMModelConfig for testing purposes.
func getValidLLMConfig() config.LLMModelConfig {
	return config.LLMModelConfig{
		Provider:    config.ProviderGemini,
		APIKey:      "test-api-key",
		Model:       "test-model",
		APITimeout:  5 * time.Second,
		Temperature: temperature(0.2),
		Instruction: config.DefaultInstruction,
	}
}

func temperature(t float32) *float32 { return &t }

// writeCapture writes a small fake PNG and returns its path.
func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ixlbot-capture-test.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nproblem"), 0o600))
	return path
}
