package model

// Stage identifies one step in the fixed property-processing pipeline.
// Every property must pass the stages in order: parse -> enrich -> validate -> approve.
type Stage string

const (
	// StageParse is the auction-list document parsing stage.
	StageParse Stage = "parse"
	// StageEnrich is the Regrid parcel-data enrichment stage.
	StageEnrich Stage = "enrich"
	// StageValidate is the street-view screenshot validation stage.
	StageValidate Stage = "validate"
	// StageApprove is the investability approval stage.
	StageApprove Stage = "approve"
)

// String returns the string representation of the Stage.
func (s Stage) String() string {
	return string(s)
}

// Ordinal returns the position of the stage in the pipeline, starting at 0.
// Unknown stages return -1.
func (s Stage) Ordinal() int {
	for i, stage := range AllStages() {
		if stage == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether s is one of the known pipeline stages.
func (s Stage) IsValid() bool {
	return s.Ordinal() >= 0
}

// AllStages returns the pipeline stages in processing order.
func AllStages() []Stage {
	return []Stage{StageParse, StageEnrich, StageValidate, StageApprove}
}

// JobType identifies which stage operation a BatchJob performs.
type JobType string

const (
	JobTypeDocumentParsing       JobType = "document_parsing"
	JobTypeRegridEnrichment      JobType = "regrid_enrichment"
	JobTypeScreenshotValidation  JobType = "screenshot_validation"
	JobTypeInvestabilityApproval JobType = "investability_approval"
)

// String returns the string representation of the JobType.
func (jt JobType) String() string {
	return string(jt)
}

// IsValid reports whether jt maps to a known pipeline stage.
func (jt JobType) IsValid() bool {
	_, ok := jt.Stage()
	return ok
}

// JobTypeForStage returns the JobType that processes the given stage.
func JobTypeForStage(s Stage) JobType {
	switch s {
	case StageParse:
		return JobTypeDocumentParsing
	case StageEnrich:
		return JobTypeRegridEnrichment
	case StageValidate:
		return JobTypeScreenshotValidation
	case StageApprove:
		return JobTypeInvestabilityApproval
	default:
		return ""
	}
}

// Stage returns the pipeline stage this JobType processes.
func (jt JobType) Stage() (Stage, bool) {
	switch jt {
	case JobTypeDocumentParsing:
		return StageParse, true
	case JobTypeRegridEnrichment:
		return StageEnrich, true
	case JobTypeScreenshotValidation:
		return StageValidate, true
	case JobTypeInvestabilityApproval:
		return StageApprove, true
	default:
		return "", false
	}
}

// StageKey identifies the backlog of one county at one pipeline stage.
type StageKey struct {
	CountyID string
	Stage    Stage
}

// StageCounts holds the derived completion counts for one (county, stage) pair.
// It is never persisted; the Stage Gap Analyzer recomputes it from the record
// store on every planning cycle.
type StageCounts struct {
	// Eligible is the number of properties that exist and qualify for this stage.
	Eligible int
	// Done is the number of properties bearing this stage's completion marker.
	Done int
}

// Backlog returns the number of eligible-but-not-done items, floored at zero.
func (c StageCounts) Backlog() int {
	if c.Eligible <= c.Done {
		return 0
	}
	return c.Eligible - c.Done
}
