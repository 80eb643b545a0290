// Package workers provides the default WorkerInvoker binding. Enrichment
// workers are external collaborators; in deployments without a webhook
// endpoint this invoker only records that work was handed out.
package workers

import (
	"context"

	"github.com/google/uuid"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/ports"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// LoggingInvoker is a WorkerInvoker that accepts all work and issues a fresh
// handle per invocation. Progress then arrives through the HTTP surface as
// workers report in.
type LoggingInvoker struct{}

// Verify that LoggingInvoker implements the ports.WorkerInvoker interface.
var _ ports.WorkerInvoker = (*LoggingInvoker)(nil)

// NewLoggingInvoker creates a new LoggingInvoker.
func NewLoggingInvoker() *LoggingInvoker {
	return &LoggingInvoker{}
}

// StartWork acknowledges the work with a fresh opaque handle.
func (i *LoggingInvoker) StartWork(_ context.Context, jobType model.JobType, countyID string, batchSize, items int) (ports.WorkerHandle, error) {
	handle := ports.WorkerHandle(uuid.New().String())
	logger.Infof("Worker start signal: %s for county '%s', %d items in batches of %d (handle %s)",
		jobType, countyID, items, batchSize, handle)
	return handle, nil
}
