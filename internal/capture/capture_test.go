// File: internal/capture/capture_test.go
package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/ixlbot/api/schemas"
	"github.com/xkilldash9x/ixlbot/internal/mocks"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-data")

func TestCaptureRegion(t *testing.T) {
	region := schemas.Region{X: 100, Y: 200, Width: 1400, Height: 800}

	t.Run("WritesUniqueFiles", func(t *testing.T) {
		dir := t.TempDir()
		shooter := new(mocks.MockRegionShooter)
		shooter.On("CaptureRegion", mock.Anything, region).Return(pngBytes, nil).Twice()
		c := New(shooter, dir, zaptest.NewLogger(t))

		first, err := c.CaptureRegion(context.Background(), region)
		require.NoError(t, err)
		second, err := c.CaptureRegion(context.Background(), region)
		require.NoError(t, err)

		assert.NotEqual(t, first.Path, second.Path)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, dir, filepath.Dir(first.Path))
		assert.True(t, strings.HasPrefix(filepath.Base(first.Path), "ixlbot-capture-"+first.ID))
		assert.Equal(t, ".png", filepath.Ext(first.Path))

		data, err := os.ReadFile(first.Path)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, data)
		shooter.AssertExpectations(t)
	})

	t.Run("ShooterFailure", func(t *testing.T) {
		dir := t.TempDir()
		shooter := new(mocks.MockRegionShooter)
		shooter.On("CaptureRegion", mock.Anything, region).Return(nil, errors.New("screenshot timed out"))
		c := New(shooter, dir, zaptest.NewLogger(t))

		artifact, err := c.CaptureRegion(context.Background(), region)
		assert.Nil(t, artifact)
		assert.ErrorContains(t, err, "screenshot timed out")

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("EmptyImage", func(t *testing.T) {
		shooter := new(mocks.MockRegionShooter)
		shooter.On("CaptureRegion", mock.Anything, region).Return([]byte{}, nil)
		c := New(shooter, t.TempDir(), zaptest.NewLogger(t))

		_, err := c.CaptureRegion(context.Background(), region)
		assert.ErrorContains(t, err, "empty image")
	})

	t.Run("MissingTempDir", func(t *testing.T) {
		shooter := new(mocks.MockRegionShooter)
		shooter.On("CaptureRegion", mock.Anything, region).Return(pngBytes, nil)
		c := New(shooter, filepath.Join(t.TempDir(), "does-not-exist"), zaptest.NewLogger(t))

		_, err := c.CaptureRegion(context.Background(), region)
		assert.ErrorContains(t, err, "failed to create capture file")
	})
}

func TestArtifactRelease(t *testing.T) {
	shooter := new(mocks.MockRegionShooter)
	shooter.On("CaptureRegion", mock.Anything, mock.Anything).Return(pngBytes, nil)
	c := New(shooter, t.TempDir(), zaptest.NewLogger(t))

	artifact, err := c.CaptureRegion(context.Background(), schemas.Region{Width: 1, Height: 1})
	require.NoError(t, err)

	require.NoError(t, artifact.Release())
	_, statErr := os.Stat(artifact.Path)
	assert.True(t, os.IsNotExist(statErr))

	assert.NoError(t, artifact.Release(), "second release is a no-op")
}

func TestArtifactRelease_AlreadyGone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ixlbot-capture-gone.png")
	artifact := &Artifact{ID: "gone", Path: path}
	assert.NoError(t, artifact.Release())
}
