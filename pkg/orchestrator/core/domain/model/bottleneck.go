package model

import "fmt"

// Severity classifies how badly a stage's backlog is holding up the pipeline.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for sorting; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Bottleneck is a per-stage backlog report, recomputed each planning cycle
// from stage counts aggregated across all counties. It is never persisted.
type Bottleneck struct {
	Stage         Stage    `json:"stage"`
	AffectedCount int      `json:"affected_count"`
	Severity      Severity `json:"severity"`
	// Recommendation is derived text, generated from the affected count and the
	// stage's default batch size.
	Recommendation   string `json:"recommendation"`
	EstimatedBatches int    `json:"estimated_batches"`
}

// NewBottleneck builds a report for a stage backlog, deriving the
// recommendation text and batch estimate from the stage's default batch size.
func NewBottleneck(stage Stage, affected int, severity Severity, batchSize int) Bottleneck {
	batches := CeilDiv(affected, batchSize)
	return Bottleneck{
		Stage:            stage,
		AffectedCount:    affected,
		Severity:         severity,
		Recommendation:   fmt.Sprintf("run %d batches of %s (%d properties outstanding)", batches, JobTypeForStage(stage), affected),
		EstimatedBatches: batches,
	}
}
