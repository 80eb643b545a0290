// Package config provides structures and utilities for loading and managing
// the orchestrator's configuration from embedded YAML and the environment.
package config

import (
	"time"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
)

// EmbeddedConfig holds the content of the configuration file, typically passed
// from main.go via go:embed.
type EmbeddedConfig []byte

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR, FATAL.
	Level string `yaml:"level"`
}

// DatabaseConfig holds connection settings for the orchestrator database,
// which stores both the job metadata and the property records.
type DatabaseConfig struct {
	// Type selects the driver: "postgres", "mysql" or "sqlite".
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file path for sqlite.
	Path string `yaml:"path"`
}

// StageThreshold holds the backlog thresholds for one stage's bottleneck
// severity classification.
type StageThreshold struct {
	// Warning is the backlog count above which the stage is a warning. A
	// backlog of zero never produces a bottleneck, whatever the threshold.
	Warning int `yaml:"warning"`
	// Critical is the backlog count above which the stage is critical.
	Critical int `yaml:"critical"`
}

// QueueConfig drives the Work Queue Builder. Priorities and batch sizes are
// data, not code, so they can be tuned and tested independently.
type QueueConfig struct {
	// Priorities maps stage name to base priority; lower is more urgent.
	Priorities map[string]int `yaml:"priorities"`
	// BatchSizes maps stage name to the stage-specific default batch size.
	BatchSizes map[string]int `yaml:"batch_sizes"`
	// UrgencyHorizonDays is the deadline window that triggers the urgency boost.
	UrgencyHorizonDays int `yaml:"urgency_horizon_days"`
	// UrgencyBoost is subtracted from the priority of counties with a deadline
	// inside the horizon. It must stay smaller than the gap between stage base
	// priorities so urgency never inverts the stage ordering.
	UrgencyBoost int `yaml:"urgency_boost"`
}

// PlannerConfig bounds a session plan.
type PlannerConfig struct {
	MaxItems             int `yaml:"max_items"`
	MaxConcurrentWorkers int `yaml:"max_concurrent_workers"`
}

// BottleneckConfig drives the Bottleneck Detector.
type BottleneckConfig struct {
	// Thresholds maps stage name to its severity thresholds.
	Thresholds map[string]StageThreshold `yaml:"thresholds"`
}

// JobConfig holds job-level policy.
type JobConfig struct {
	// ErrorCeiling is the error_count above which a job surfaces as a critical
	// alert even when its backlog alone would not trigger one.
	ErrorCeiling int `yaml:"error_ceiling"`
	// ListLimit caps status-surface job listings.
	ListLimit int `yaml:"list_limit"`
}

// SchedulerConfig controls the periodic planning loop.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// IntervalSeconds is the planning cadence; the system operates on a batch
	// cadence of seconds to minutes, never sub-second.
	IntervalSeconds int `yaml:"interval_seconds"`
	// StaleTimeoutMinutes flags running jobs with no progress for this long.
	StaleTimeoutMinutes int `yaml:"stale_timeout_minutes"`
}

// ServerConfig controls the HTTP status/mutating surface.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// TracingConfig selects the OTLP trace exporter.
type TracingConfig struct {
	// Exporter is "grpc", "http" or "none".
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	// ServiceName is reported as the otel service.name resource attribute.
	ServiceName string `yaml:"service_name"`
}

// MetricsConfig selects the metric backend bound to the recorder. The
// Prometheus registry stays available on /metrics regardless; this only
// controls where recorded metrics go.
type MetricsConfig struct {
	// Exporter is "prometheus", "grpc", "http" or "none".
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	// IntervalSeconds is the OTLP push interval. Ignored for prometheus.
	IntervalSeconds int `yaml:"interval_seconds"`
}

// ExportConfig controls the parquet snapshot export written after planning cycles.
type ExportConfig struct {
	Enabled bool `yaml:"enabled"`
	// Storage selects the snapshot destination: "local" or "gcs".
	Storage string `yaml:"storage"`
	// Options are backend-specific settings (e.g. bucket/prefix for gcs,
	// directory for local), bound loosely onto the backend's option struct.
	Options map[string]string `yaml:"options"`
}

// WorkersConfig controls worker invocation.
type WorkersConfig struct {
	// Agents is the pool of external worker identities assignments are bound to.
	Agents []string `yaml:"agents"`
}

// Config is the root configuration of the orchestrator.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Queue      QueueConfig      `yaml:"queue"`
	Planner    PlannerConfig    `yaml:"planner"`
	Bottleneck BottleneckConfig `yaml:"bottleneck"`
	Job        JobConfig        `yaml:"job"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Server     ServerConfig     `yaml:"server"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Export     ExportConfig     `yaml:"export"`
	Workers    WorkersConfig    `yaml:"workers"`
}

// NewConfig returns a Config populated with defaults. Embedded YAML and
// environment variables are merged over these values by the loader.
func NewConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO"},
		Database: DatabaseConfig{
			Type:    "sqlite",
			Path:    "orchestrator.db",
			SSLMode: "disable",
		},
		Queue: QueueConfig{
			Priorities: map[string]int{
				model.StageParse.String():    10,
				model.StageEnrich.String():   20,
				model.StageValidate.String(): 30,
				model.StageApprove.String():  40,
			},
			BatchSizes: map[string]int{
				model.StageParse.String():    100,
				model.StageEnrich.String():   25,
				model.StageValidate.String(): 10,
				model.StageApprove.String():  50,
			},
			UrgencyHorizonDays: 14,
			UrgencyBoost:       5,
		},
		Planner: PlannerConfig{
			MaxItems:             200,
			MaxConcurrentWorkers: 4,
		},
		Bottleneck: BottleneckConfig{
			Thresholds: map[string]StageThreshold{
				model.StageParse.String():    {Warning: 0, Critical: 500},
				model.StageEnrich.String():   {Warning: 0, Critical: 1000},
				model.StageValidate.String(): {Warning: 0, Critical: 100},
				model.StageApprove.String():  {Warning: 0, Critical: 250},
			},
		},
		Job: JobConfig{
			ErrorCeiling: 10,
			ListLimit:    100,
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			IntervalSeconds:     60,
			StaleTimeoutMinutes: 30,
		},
		Server: ServerConfig{
			Enabled: true,
			Address: ":8080",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "taxdeedflow-orchestrator",
		},
		Metrics: MetricsConfig{
			Exporter:        "prometheus",
			IntervalSeconds: 30,
		},
		Export: ExportConfig{
			Enabled: false,
			Storage: "local",
			Options: map[string]string{"directory": "snapshots"},
		},
		Workers: WorkersConfig{
			Agents: []string{"worker-1", "worker-2", "worker-3", "worker-4"},
		},
	}
}

// BasePriority returns the configured base priority for a stage. Stages
// missing from the table sort last.
func (q QueueConfig) BasePriority(stage model.Stage) int {
	if p, ok := q.Priorities[stage.String()]; ok {
		return p
	}
	return 1000
}

// BatchSize returns the configured default batch size for a stage.
func (q QueueConfig) BatchSize(stage model.Stage) int {
	if b, ok := q.BatchSizes[stage.String()]; ok && b > 0 {
		return b
	}
	return 50
}

// UrgencyHorizon returns the deadline window as a duration.
func (q QueueConfig) UrgencyHorizon() time.Duration {
	return time.Duration(q.UrgencyHorizonDays) * 24 * time.Hour
}

// Threshold returns the severity thresholds for a stage.
func (b BottleneckConfig) Threshold(stage model.Stage) StageThreshold {
	if t, ok := b.Thresholds[stage.String()]; ok {
		return t
	}
	return StageThreshold{Warning: 0, Critical: 1000}
}

// Interval returns the scheduler cadence as a duration.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// StaleTimeout returns the stale-job window as a duration.
func (s SchedulerConfig) StaleTimeout() time.Duration {
	return time.Duration(s.StaleTimeoutMinutes) * time.Minute
}
