package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "Public_CbCRs", cfg.Paths.Sheet)
	assert.Equal(t, "DEU", cfg.Study.Jurisdiction)
	assert.Equal(t, 0.1, cfg.Study.MinValue)
	assert.Equal(t, 20, cfg.Study.MaxIterations)
	assert.Equal(t, int64(42), cfg.Study.Seed)
	assert.Equal(t, 0.5, cfg.Study.ETRUpperBound)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CBCR_STUDY_JURISDICTION", "ITA")
	t.Setenv("CBCR_STUDY_MAX_ITERATIONS", "50")
	t.Setenv("CBCR_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ITA", cfg.Study.Jurisdiction)
	assert.Equal(t, 50, cfg.Study.MaxIterations)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)

	content := `
study:
  jurisdiction: ITA
  seed: 7
logging:
  level: warn
`
	path := filepath.Join(t.TempDir(), "cbcr-study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CBCR_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ITA", cfg.Study.Jurisdiction)
	assert.Equal(t, int64(7), cfg.Study.Seed)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 0.1, cfg.Study.MinValue, "unset file fields keep their defaults")
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	clearEnv(t)

	content := "study:\n  jurisdiction: ITA\n"
	path := filepath.Join(t.TempDir(), "cbcr-study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CBCR_CONFIG_FILE", path)
	t.Setenv("CBCR_STUDY_JURISDICTION", "FRA")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "FRA", cfg.Study.Jurisdiction)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "CBCR_LOGGING_LEVEL", "verbose"},
		{"bad log format", "CBCR_LOGGING_FORMAT", "xml"},
		{"negative min value", "CBCR_STUDY_MIN_VALUE", "-1"},
		{"zero iterations", "CBCR_STUDY_MAX_ITERATIONS", "0"},
		{"etr bound above one", "CBCR_STUDY_ETR_UPPER_BOUND", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation")
		})
	}
}

// clearEnv blanks every CBCR variable the test process may have inherited
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CBCR_CONFIG_FILE",
		"CBCR_LOGGING_LEVEL", "CBCR_LOGGING_FORMAT", "CBCR_LOGGING_OUTPUT", "CBCR_LOGGING_FILE_PATH",
		"CBCR_PATHS_INPUT_FILE", "CBCR_PATHS_SHEET", "CBCR_PATHS_OUTPUT_DIR",
		"CBCR_STUDY_JURISDICTION", "CBCR_STUDY_MIN_VALUE", "CBCR_STUDY_MAX_ITERATIONS",
		"CBCR_STUDY_SEED", "CBCR_STUDY_TOLERANCE", "CBCR_STUDY_ETR_UPPER_BOUND",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}
