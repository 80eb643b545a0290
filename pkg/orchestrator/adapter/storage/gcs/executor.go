// Package gcs is the Google Cloud Storage backend for run artifacts.
package gcs

import (
	"context"
	"errors"
	"io"
	"path"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/configbinder"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

const moduleName = "gcs_storage"

// Options are the GCS backend's settings.
type Options struct {
	// Bucket is the destination bucket name.
	Bucket string `yaml:"bucket"`
	// Prefix is prepended to every object name.
	Prefix string `yaml:"prefix"`
	// CredentialsFile optionally points at a service account key; application
	// default credentials are used when empty.
	CredentialsFile string `yaml:"credentials_file"`
}

// Executor stores objects in a GCS bucket.
type Executor struct {
	client *gcstorage.Client
	bucket string
	prefix string
}

// NewExecutor creates a GCS Executor from the loose option map.
func NewExecutor(options map[string]string) (*Executor, error) {
	var opts Options
	if err := configbinder.BindOptions(options, &opts); err != nil {
		return nil, exception.Wrap(moduleName, exception.KindInvalidInput, "invalid gcs storage options", err)
	}
	if opts.Bucket == "" {
		return nil, exception.New(moduleName, exception.KindInvalidInput, "gcs storage requires a bucket option")
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := gcstorage.NewClient(context.Background(), clientOpts...)
	if err != nil {
		return nil, exception.Wrap(moduleName, exception.KindInternal, "failed to create GCS client", err)
	}
	return &Executor{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (e *Executor) objectPath(objectName string) string {
	if e.prefix == "" {
		return objectName
	}
	return path.Join(e.prefix, objectName)
}

// Upload writes one object.
func (e *Executor) Upload(ctx context.Context, objectName string, data io.Reader, contentType string) error {
	w := e.client.Bucket(e.bucket).Object(e.objectPath(objectName)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return exception.Wrap(moduleName, exception.KindInternal, "failed to write GCS object", err)
	}
	if err := w.Close(); err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to finalize GCS object", err)
	}
	return nil
}

// Download returns a reader over one object; the caller must close it.
func (e *Executor) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	r, err := e.client.Bucket(e.bucket).Object(e.objectPath(objectName)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil, exception.Newf(moduleName, exception.KindNotFound, "object %q not found", objectName)
		}
		return nil, exception.Wrap(moduleName, exception.KindInternal, "failed to open GCS object", err)
	}
	return r, nil
}

// ListObjects calls fn for every object under the prefix.
func (e *Executor) ListObjects(ctx context.Context, prefix string, fn func(objectName string) error) error {
	it := e.client.Bucket(e.bucket).Objects(ctx, &gcstorage.Query{Prefix: e.objectPath(prefix)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return exception.Wrap(moduleName, exception.KindInternal, "failed to list GCS objects", err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

// DeleteObject removes one object.
func (e *Executor) DeleteObject(ctx context.Context, objectName string) error {
	err := e.client.Bucket(e.bucket).Object(e.objectPath(objectName)).Delete(ctx)
	if err != nil && !errors.Is(err, gcstorage.ErrObjectNotExist) {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to delete GCS object", err)
	}
	return nil
}

// Close releases the underlying client.
func (e *Executor) Close() error {
	return e.client.Close()
}
