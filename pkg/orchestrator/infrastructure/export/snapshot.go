// Package export serializes planning cycle results to parquet and hands them
// to the configured storage backend as run artifacts.
package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/adapter/storage"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/application/usecase"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

const moduleName = "snapshot_export"

// queueRow is the parquet schema for one work queue item.
type queueRow struct {
	CountyID         string `parquet:"name=county_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	JobType          string `parquet:"name=job_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Stage            string `parquet:"name=stage, type=BYTE_ARRAY, convertedtype=UTF8"`
	ItemsTotal       int32  `parquet:"name=items_total, type=INT32"`
	BatchSize        int32  `parquet:"name=batch_size, type=INT32"`
	EstimatedBatches int32  `parquet:"name=estimated_batches, type=INT32"`
	Priority         int32  `parquet:"name=priority, type=INT32"`
	Selected         bool   `parquet:"name=selected, type=BOOLEAN"`
	Severity         string `parquet:"name=severity, type=BYTE_ARRAY, convertedtype=UTF8"`
	GeneratedAt      int64  `parquet:"name=generated_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// SnapshotExporter writes one parquet file per planning cycle, containing the
// full work queue with selection and severity annotations.
type SnapshotExporter struct {
	executor storage.Executor
}

// Verify that SnapshotExporter implements the usecase.SnapshotExporter interface.
var _ usecase.SnapshotExporter = (*SnapshotExporter)(nil)

// NewSnapshotExporter creates a SnapshotExporter over the given storage backend.
func NewSnapshotExporter(executor storage.Executor) *SnapshotExporter {
	return &SnapshotExporter{executor: executor}
}

// Export serializes the cycle result and uploads it under a date-partitioned
// path. Export failures never affect the cycle itself.
func (e *SnapshotExporter) Export(ctx context.Context, result *usecase.CycleResult) error {
	selected := make(map[string]bool, len(result.Plan.SelectedWork))
	for _, item := range result.Plan.SelectedWork {
		selected[item.CountyID+"/"+item.JobType.String()] = true
	}
	severities := make(map[string]string, len(result.Bottlenecks))
	for _, b := range result.Bottlenecks {
		severities[b.Stage.String()] = string(b.Severity)
	}

	rows := make([]queueRow, 0, len(result.Queue))
	for _, item := range result.Queue {
		rows = append(rows, queueRow{
			CountyID:         item.CountyID,
			JobType:          item.JobType.String(),
			Stage:            item.Stage.String(),
			ItemsTotal:       int32(item.ItemsTotal),
			BatchSize:        int32(item.BatchSize),
			EstimatedBatches: int32(item.EstimatedBatches),
			Priority:         int32(item.Priority),
			Selected:         selected[item.CountyID+"/"+item.JobType.String()],
			Severity:         severities[item.Stage.String()],
			GeneratedAt:      result.GeneratedAt.UnixMilli(),
		})
	}
	if len(rows) == 0 {
		logger.Debugf("Snapshot export skipped: empty queue")
		return nil
	}

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(queueRow), int64(len(rows)))
	if err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to create parquet writer", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return exception.Wrap(moduleName, exception.KindInternal, "failed to write parquet row", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return exception.Wrap(moduleName, exception.KindInternal, "failed to finalize parquet file", err)
	}

	objectName := fmt.Sprintf("cycles/dt=%s/queue_%s.parquet",
		result.GeneratedAt.Format("2006-01-02"),
		result.GeneratedAt.Format("20060102150405"))
	if err := e.executor.Upload(ctx, objectName, buf, "application/octet-stream"); err != nil {
		return err
	}
	logger.Infof("Cycle snapshot exported to %s (%d rows)", objectName, len(rows))
	return nil
}
