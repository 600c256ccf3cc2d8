package infrastructure

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cbcrcli/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"", slog.LevelInfo, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateLogger_Console(t *testing.T) {
	logger, err := createLogger(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "console",
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestCreateLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "study.log")

	logger, err := createLogger(config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseLogger() })

	logger.Info("fitted model", slog.String("jurisdiction", "DEU"))
	require.NoError(t, CloseLogger())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"jurisdiction":"DEU"`)
	assert.Contains(t, string(data), `"msg":"fitted model"`)
}

func TestCreateLogger_BadLevel(t *testing.T) {
	_, err := createLogger(config.LoggingConfig{Level: "loud"})
	require.Error(t, err)
}
