// Package local is the filesystem storage backend, used for development and
// single-host deployments.
package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/configbinder"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const moduleName = "local_storage"

// Options are the local backend's settings.
type Options struct {
	// Directory is the root directory artifacts are written under.
	Directory string `yaml:"directory"`
}

// Executor stores objects as files under a root directory.
type Executor struct {
	root string
}

// NewExecutor creates a local Executor from the loose option map.
func NewExecutor(options map[string]string) (*Executor, error) {
	opts := Options{Directory: "snapshots"}
	if err := configbinder.BindOptions(options, &opts); err != nil {
		return nil, exception.Wrap(moduleName, exception.KindInvalidInput, "invalid local storage options", err)
	}
	return &Executor{root: opts.Directory}, nil
}

func (e *Executor) path(objectName string) string {
	return filepath.Join(e.root, filepath.FromSlash(objectName))
}

// Upload writes one object, creating parent directories as needed.
func (e *Executor) Upload(_ context.Context, objectName string, data io.Reader, _ string) error {
	path := e.path(objectName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to create artifact directory", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to create artifact file", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, data); err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to write artifact file", err)
	}
	return nil
}

// Download returns a reader over one object.
func (e *Executor) Download(_ context.Context, objectName string) (io.ReadCloser, error) {
	f, err := os.Open(e.path(objectName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exception.Newf(moduleName, exception.KindNotFound, "object %q not found", objectName)
		}
		return nil, exception.Wrap(moduleName, exception.KindInternal, "failed to open artifact file", err)
	}
	return f, nil
}

// ListObjects calls fn for every file under the prefix.
func (e *Executor) ListObjects(_ context.Context, prefix string, fn func(objectName string) error) error {
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(e.root, path)
		if err != nil {
			return err
		}
		objectName := filepath.ToSlash(rel)
		if !strings.HasPrefix(objectName, prefix) {
			return nil
		}
		return fn(objectName)
	})
	if err != nil && !os.IsNotExist(err) {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to list artifacts", err)
	}
	return nil
}

// DeleteObject removes one object.
func (e *Executor) DeleteObject(_ context.Context, objectName string) error {
	if err := os.Remove(e.path(objectName)); err != nil && !os.IsNotExist(err) {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to delete artifact file", err)
	}
	return nil
}
