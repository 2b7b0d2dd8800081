// File: internal/capture/capture.go
package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ixlbot/api/schemas"
)

// Artifact is a screenshot written to a temporary file. It must be released
// once interpretation is done.
type Artifact struct {
	ID   string
	Path string

	once sync.Once
	err  error
}

// Release removes the file. Safe to call more than once; a file that is
// already gone counts as released.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.err = fmt.Errorf("failed to remove capture %s: %w", a.Path, err)
		}
	})
	return a.err
}

// Capturer turns a screen region into an Artifact.
type Capturer struct {
	shooter schemas.RegionShooter
	tempDir string
	logger  *zap.Logger
}

// New creates a Capturer. An empty tempDir means os.TempDir.
func New(shooter schemas.RegionShooter, tempDir string, logger *zap.Logger) *Capturer {
	return &Capturer{
		shooter: shooter,
		tempDir: tempDir,
		logger:  logger.Named("capture"),
	}
}

// CaptureRegion screenshots region and writes it to a uniquely named PNG.
func (c *Capturer) CaptureRegion(ctx context.Context, region schemas.Region) (*Artifact, error) {
	data, err := c.shooter.CaptureRegion(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("failed to capture region: empty image")
	}

	id := uuid.New().String()
	f, err := os.CreateTemp(c.tempDir, "ixlbot-capture-"+id+"-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	path := f.Name()

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			c.logger.Warn("Could not remove partial capture.", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("failed to write capture file: %w", err)
	}

	c.logger.Debug("Captured problem region.",
		zap.String("artifact_id", id),
		zap.String("path", path),
		zap.Int("bytes", len(data)))
	return &Artifact{ID: id, Path: path}, nil
}
