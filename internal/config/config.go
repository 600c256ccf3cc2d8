package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces all environment variables, e.g. CBCR_STUDY_JURISDICTION
const EnvPrefix = "CBCR"

// configFileEnv points Load at an explicit YAML file; the default name is
// picked up from the working directory when the variable is unset.
const (
	configFileEnv     = "CBCR_CONFIG_FILE"
	defaultConfigFile = "cbcr-study.yaml"
)

// Config represents the complete study configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Study   StudyConfig   `yaml:"study" envconfig:"STUDY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
	Output string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	// FilePath receives log output for the file and both modes
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/study.log"`
}

// PathsConfig contains input and output locations
type PathsConfig struct {
	// InputFile is the CbCR extract, CSV or Excel by extension
	InputFile string `yaml:"input_file" envconfig:"INPUT_FILE" default:"EUTO_Public_CbCR_Database_2021.xlsx" validate:"required"`
	// Sheet names the worksheet for Excel inputs
	Sheet     string `yaml:"sheet" envconfig:"SHEET" default:"Public_CbCRs"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"reports" validate:"required"`
}

// StudyConfig contains the analysis parameters shared by all runs
type StudyConfig struct {
	Jurisdiction  string  `yaml:"jurisdiction" envconfig:"JURISDICTION" default:"DEU" validate:"required"`
	MinValue      float64 `yaml:"min_value" envconfig:"MIN_VALUE" default:"0.1" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" default:"20" validate:"gt=0"`
	Seed          int64   `yaml:"seed" envconfig:"SEED" default:"42"`
	Tolerance     float64 `yaml:"tolerance" envconfig:"TOLERANCE" default:"0.001" validate:"gt=0"`
	ETRUpperBound float64 `yaml:"etr_upper_bound" envconfig:"ETR_UPPER_BOUND" default:"0.5" validate:"gt=0,lte=1"`
}

// Load loads configuration from environment variables and the optional
// config file, then validates the merged result.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	configFile := os.Getenv(configFileEnv)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs merges file config with env config; explicit env values win,
// but env defaults yield to anything the file sets. Defaults and env values
// are indistinguishable after envconfig runs, so the merge treats a field as
// env-set only when it differs from its declared default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	var defaults Config
	applyDefaults(&defaults)

	merged := envConfig
	mergeString(&merged.Logging.Level, fileConfig.Logging.Level, defaults.Logging.Level)
	mergeString(&merged.Logging.Format, fileConfig.Logging.Format, defaults.Logging.Format)
	mergeString(&merged.Logging.Output, fileConfig.Logging.Output, defaults.Logging.Output)
	mergeString(&merged.Logging.FilePath, fileConfig.Logging.FilePath, defaults.Logging.FilePath)

	mergeString(&merged.Paths.InputFile, fileConfig.Paths.InputFile, defaults.Paths.InputFile)
	mergeString(&merged.Paths.Sheet, fileConfig.Paths.Sheet, defaults.Paths.Sheet)
	mergeString(&merged.Paths.OutputDir, fileConfig.Paths.OutputDir, defaults.Paths.OutputDir)

	mergeString(&merged.Study.Jurisdiction, fileConfig.Study.Jurisdiction, defaults.Study.Jurisdiction)
	mergeFloat(&merged.Study.MinValue, fileConfig.Study.MinValue, defaults.Study.MinValue)
	mergeInt(&merged.Study.MaxIterations, fileConfig.Study.MaxIterations, defaults.Study.MaxIterations)
	mergeInt64(&merged.Study.Seed, fileConfig.Study.Seed, defaults.Study.Seed)
	mergeFloat(&merged.Study.Tolerance, fileConfig.Study.Tolerance, defaults.Study.Tolerance)
	mergeFloat(&merged.Study.ETRUpperBound, fileConfig.Study.ETRUpperBound, defaults.Study.ETRUpperBound)

	return merged
}

// applyDefaults fills a Config with only the struct-tag defaults
func applyDefaults(cfg *Config) {
	// envconfig with an improbable prefix sees no variables and applies
	// just the declared defaults
	_ = envconfig.Process("CBCR_DEFAULTS_ONLY", cfg)
}

func mergeString(dst *string, fileVal, defaultVal string) {
	if *dst == defaultVal && fileVal != "" {
		*dst = fileVal
	}
}

func mergeFloat(dst *float64, fileVal, defaultVal float64) {
	if *dst == defaultVal && fileVal != 0 {
		*dst = fileVal
	}
}

func mergeInt(dst *int, fileVal, defaultVal int) {
	if *dst == defaultVal && fileVal != 0 {
		*dst = fileVal
	}
}

func mergeInt64(dst *int64, fileVal, defaultVal int64) {
	if *dst == defaultVal && fileVal != 0 {
		*dst = fileVal
	}
}

// Validate checks the configuration against the struct validation tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
