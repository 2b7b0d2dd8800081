// File: cmd/ixlbot/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(context.Canceled))
	assert.Equal(t, 0, exitCode(fmt.Errorf("solve: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("failed to launch browser")))
	assert.Equal(t, 1, exitCode(context.DeadlineExceeded))
}

func stubExit(t *testing.T) *int {
	t.Helper()
	code := -1
	osExit = func(c int) { code = c }
	t.Cleanup(func() { osExit = os.Exit })
	return &code
}

func TestHandlePanic(t *testing.T) {
	t.Run("WritesPanicLog", func(t *testing.T) {
		code := stubExit(t)
		var written string
		var path string
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			path, written = name, string(data)
			return nil
		}
		t.Cleanup(func() { osWriteFile = os.WriteFile })

		func() {
			defer handlePanic()
			panic("nil map write")
		}()

		assert.Equal(t, 2, *code)
		assert.Equal(t, panicLogFile, path)
		assert.Contains(t, written, "panic: nil map write")
		assert.Contains(t, written, "goroutine", "the stack trace is included")
	})

	t.Run("WriteFailure", func(t *testing.T) {
		code := stubExit(t)
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only file system") }
		t.Cleanup(func() { osWriteFile = os.WriteFile })

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 2, *code)
	})

	t.Run("NoPanic", func(t *testing.T) {
		code := stubExit(t)
		func() {
			defer handlePanic()
		}()
		assert.Equal(t, -1, *code)
	})
}

func TestMainExitCode(t *testing.T) {
	code := stubExit(t)
	previous := execute
	t.Cleanup(func() { execute = previous })
	execute = func(ctx context.Context) error {
		require.NotNil(t, ctx)
		return errors.New("bad config")
	}

	main()
	assert.Equal(t, 1, *code)
}
