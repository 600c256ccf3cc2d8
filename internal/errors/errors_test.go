package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudyError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *StudyError
		expected string
	}{
		{
			name:     "without details",
			err:      New("SCHEMA_ERROR", "required column missing from input"),
			expected: "SCHEMA_ERROR: required column missing from input",
		},
		{
			name:     "with details",
			err:      NewWithDetails("IMPUTATION_ERROR", "missing-value imputation failed", "singular design"),
			expected: "IMPUTATION_ERROR: missing-value imputation failed (singular design)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorMatching(t *testing.T) {
	t.Run("schema error matches sentinel through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load extract: %w", NewSchemaError("profit_before_tax"))
		assert.True(t, IsSchemaError(err))
		assert.False(t, IsImputationError(err))
		assert.False(t, IsInsufficientData(err))
	})

	t.Run("imputation error matches sentinel", func(t *testing.T) {
		err := NewImputationError("column employees has no observed values")
		assert.True(t, IsImputationError(err))
		assert.False(t, IsSchemaError(err))
	})

	t.Run("insufficient data carries sample geometry", func(t *testing.T) {
		err := NewInsufficientData(0, 6)
		require.True(t, IsInsufficientData(err))

		details, ok := err.Details.(InsufficientDataDetails)
		require.True(t, ok)
		assert.Equal(t, 0, details.SampleSize)
		assert.Equal(t, 6, details.Regressors)
	})

	t.Run("different codes do not match", func(t *testing.T) {
		assert.False(t, IsInsufficientData(NewSchemaError("tax_paid")))
	})
}

func TestNewSchemaError(t *testing.T) {
	err := NewSchemaError("tangible_assets")
	assert.Contains(t, err.Error(), "tangible_assets")
	assert.Equal(t, "SCHEMA_ERROR", err.Code)
}
