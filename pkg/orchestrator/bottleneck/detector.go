// Package bottleneck classifies per-stage pipeline backlog against severity
// thresholds and flags jobs whose error counts have crossed the ceiling.
package bottleneck

import (
	"context"
	"sort"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/config"
	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/repository"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// Detector produces per-stage Bottleneck reports. Reports are recomputed
// every cycle from the current gap map and never persisted.
type Detector struct {
	cfg  *config.Config
	jobs repository.JobRepository
}

// NewDetector creates a Detector over the given threshold configuration and
// job repository.
func NewDetector(cfg *config.Config, jobs repository.JobRepository) *Detector {
	return &Detector{cfg: cfg, jobs: jobs}
}

// Detect aggregates the gap map across counties into one backlog figure per
// stage, classifies each positive backlog against the stage's threshold
// table, and escalates the stage to critical when any running job at that
// stage has an error count above the configured ceiling. Stages with zero
// backlog and no over-ceiling job produce no entry. The result is sorted by
// severity descending, then affected count descending, then stage order, so
// repeated runs over the same inputs are byte-identical.
func (d *Detector) Detect(ctx context.Context, gaps map[model.StageKey]model.StageCounts) ([]model.Bottleneck, error) {
	backlogs := make(map[model.Stage]int)
	for key, counts := range gaps {
		backlogs[key.Stage] += counts.Backlog()
	}

	escalated, err := d.overCeilingStages(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]model.Bottleneck, 0, len(backlogs))
	for _, stage := range model.AllStages() {
		backlog := backlogs[stage]
		severity, ok := d.classify(stage, backlog)
		if escalated[stage] {
			severity = model.SeverityCritical
			ok = true
			logger.Warnf("Stage '%s' escalated to critical: running job over error ceiling", stage)
		}
		if !ok {
			continue
		}
		reports = append(reports, model.NewBottleneck(stage, backlog, severity, d.cfg.Queue.BatchSize(stage)))
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Severity != reports[j].Severity {
			return reports[i].Severity.Rank() > reports[j].Severity.Rank()
		}
		if reports[i].AffectedCount != reports[j].AffectedCount {
			return reports[i].AffectedCount > reports[j].AffectedCount
		}
		return reports[i].Stage.Ordinal() < reports[j].Stage.Ordinal()
	})
	return reports, nil
}

// classify maps a backlog count onto a severity. A zero backlog never
// produces a report regardless of thresholds.
func (d *Detector) classify(stage model.Stage, backlog int) (model.Severity, bool) {
	if backlog <= 0 {
		return "", false
	}
	threshold := d.cfg.Bottleneck.Threshold(stage)
	if backlog > threshold.Critical {
		return model.SeverityCritical, true
	}
	if backlog > threshold.Warning {
		return model.SeverityWarning, true
	}
	return "", false
}

// overCeilingStages returns the stages that have at least one running job
// whose error count exceeds the configured ceiling. Such a job must surface
// to operators even when the stage backlog alone would stay quiet.
func (d *Detector) overCeilingStages(ctx context.Context) (map[model.Stage]bool, error) {
	running, err := d.jobs.ListJobs(ctx, repository.JobFilter{Status: model.JobStatusRunning})
	if err != nil {
		return nil, err
	}
	stages := make(map[model.Stage]bool)
	for _, job := range running {
		if job.ErrorCount <= d.cfg.Job.ErrorCeiling {
			continue
		}
		if stage, ok := job.JobType.Stage(); ok {
			stages[stage] = true
		}
	}
	return stages, nil
}
