// Package storage abstracts the object-storage backends that receive the
// orchestrator's run artifacts.
package storage

import (
	"context"
	"io"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/adapter/storage/gcs"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/adapter/storage/local"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const moduleName = "storage"

// Executor defines the storage operations used for run artifacts. Object
// names are slash-separated paths relative to the backend's root.
type Executor interface {
	// Upload writes one object. Existing objects with the same name are replaced.
	Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error
	// Download returns a reader over one object; the caller must close it.
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object under the prefix.
	ListObjects(ctx context.Context, prefix string, fn func(objectName string) error) error
	// DeleteObject removes one object.
	DeleteObject(ctx context.Context, objectName string) error
}

// NewExecutor builds the configured storage backend, binding the loose
// export options onto the backend's own option struct. With export disabled
// the local backend is returned without touching remote credentials.
func NewExecutor(cfg *config.Config) (Executor, error) {
	if !cfg.Export.Enabled {
		return local.NewExecutor(cfg.Export.Options)
	}
	switch cfg.Export.Storage {
	case "local":
		return local.NewExecutor(cfg.Export.Options)
	case "gcs":
		return gcs.NewExecutor(cfg.Export.Options)
	default:
		return nil, exception.Newf(moduleName, exception.KindInvalidInput,
			"unsupported storage backend %q", cfg.Export.Storage)
	}
}
