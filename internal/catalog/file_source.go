package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/fsnotify/fsnotify"

	"correction_pricing/internal/logging"
	"correction_pricing/internal/models"
)

// FileSource reads a JSON catalog from disk. The file holds either
// {"tariffs": [...]} or a bare array of tariffs.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading the catalog at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: filepath.Clean(path)}
}

// Path returns the cleaned catalog path.
func (s *FileSource) Path() string {
	return s.path
}

// FetchCatalog reads and decodes the file, keeping active tariffs only.
func (s *FileSource) FetchCatalog(ctx context.Context) ([]models.TariffRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var tariffs []models.TariffRecord
		if err := sonic.Unmarshal(raw, &tariffs); err != nil {
			return nil, fmt.Errorf("failed to decode catalog file: %w", err)
		}
		return activeOnly(tariffs), nil
	}

	var doc document
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}
	return activeOnly(doc.Tariffs), nil
}

// Watch calls onChange whenever the catalog file is written, created or
// replaced, until ctx ends. The parent directory is watched so editors that
// save by rename are seen too.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					logging.Debugf("Catalog file changed: %s", event)
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warningf("Catalog file watch error: %v", err)
			}
		}
	}()

	return nil
}
