package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pagemotion/internal/pkg/errors"
	"pagemotion/internal/pkg/logger"
	"pagemotion/internal/ports"
)

// InputHandler copies spooled uploads into a job's working directory and
// releases them from storage once they are no longer needed.
type InputHandler struct {
	sp  ports.StorageProvider
	log *logger.Logger
}

func NewInputHandler(sp ports.StorageProvider, log *logger.Logger) *InputHandler {
	return &InputHandler{sp: sp, log: log}
}

// Materialize downloads each key into dir as <name><ext>, keeping the order
// of keys. names[i] is used for keys[i].
func (ih *InputHandler) Materialize(ctx context.Context, dir string, keys, names []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inputs directory: %w", err)
	}

	paths := make([]string, 0, len(keys))
	for i, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.MissingField("object_key")
		}
		p, err := ih.materialize(ctx, dir, names[i], key)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (ih *InputHandler) materialize(ctx context.Context, dir, name, key string) (string, error) {
	rc, contentType, _, err := ih.sp.GetObject(ctx, key)
	if err != nil {
		return "", errors.Wrap(err, "processor.inputs", "download input").WithField("object_key", key)
	}
	defer rc.Close()

	localPath := filepath.Join(dir, SanitizeFilename(name)+extFor(key, contentType))
	f, err := os.Create(localPath)
	if err != nil {
		return "", errors.Wrap(err, "processor.inputs", "create local input")
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return "", errors.Wrap(err, "processor.inputs", "save input").WithField("object_key", key)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "processor.inputs", "save input")
	}
	return localPath, nil
}

// Release deletes the given objects from storage. Failures are logged and
// do not affect the job.
func (ih *InputHandler) Release(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := ih.sp.DeleteObject(ctx, key); err != nil {
			ih.log.FromContext(ctx).Warn("release upload failed", "object_key", key, "error", err.Error())
		}
	}
}
