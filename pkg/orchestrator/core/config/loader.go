package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	model "github.com/taxdeedflow/orchestrator/pkg/orchestrator/core/domain/model"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"

	"go.uber.org/fx"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	// EmbeddedConfig contains the raw bytes of the embedded configuration file.
	EmbeddedConfig EmbeddedConfig
	// EnvFilePath is the path to the .env file, if any.
	EnvFilePath string `name:"envFilePath" optional:"true"`
}

// loadConfig loads configuration from the embedded file and the environment.
// Defaults are applied first, the embedded YAML (after ${VAR} expansion) is
// merged over them, and finally a small set of well-known environment
// variables override the result.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	expanded, err := NewOsEnvironmentExpander().Expand(embeddedConfig)
	if err != nil {
		return nil, exception.Wrap(moduleName, exception.KindInternal, "failed to expand environment variables in embedded config", err)
	}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.Wrap(moduleName, exception.KindInternal, "failed to unmarshal embedded config", err)
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides a small set of well-known settings from the
// environment. These are deployment-level knobs; tuning tables stay in YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DB_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		} else {
			logger.Warnf("Ignoring non-numeric DB_PORT value %q", v)
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
}

// validate rejects configurations that would break planning invariants.
func validate(cfg *Config) error {
	if cfg.Planner.MaxItems <= 0 {
		return exception.Newf(moduleName, exception.KindInvalidInput, "planner.max_items must be positive, got %d", cfg.Planner.MaxItems)
	}
	if cfg.Planner.MaxConcurrentWorkers <= 0 {
		return exception.Newf(moduleName, exception.KindInvalidInput, "planner.max_concurrent_workers must be positive, got %d", cfg.Planner.MaxConcurrentWorkers)
	}
	if cfg.Queue.UrgencyBoost < 0 {
		return exception.Newf(moduleName, exception.KindInvalidInput, "queue.urgency_boost must not be negative, got %d", cfg.Queue.UrgencyBoost)
	}
	// The urgency boost may never invert the base stage ordering: it must stay
	// below the smallest gap between adjacent stage priorities.
	stages := model.AllStages()
	for i := 1; i < len(stages); i++ {
		gap := cfg.Queue.BasePriority(stages[i]) - cfg.Queue.BasePriority(stages[i-1])
		if gap <= 0 {
			return exception.Newf(moduleName, exception.KindInvalidInput,
				"queue.priorities must increase along the pipeline: %s (%d) is not above %s (%d)",
				stages[i], cfg.Queue.BasePriority(stages[i]), stages[i-1], cfg.Queue.BasePriority(stages[i-1]))
		}
		if cfg.Queue.UrgencyBoost >= gap {
			return exception.Newf(moduleName, exception.KindInvalidInput,
				"queue.urgency_boost (%d) must be smaller than the priority gap between %s and %s (%d)",
				cfg.Queue.UrgencyBoost, stages[i-1], stages[i], gap)
		}
	}
	return nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also sets the global logger level from the loaded configuration.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Logging.Level)
	logger.Debugf("Configuration loaded (db=%s, scheduler=%v, server=%v)",
		cfg.Database.Type, cfg.Scheduler.Enabled, cfg.Server.Enabled)
	return cfg, nil
}
