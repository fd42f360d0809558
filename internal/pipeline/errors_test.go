package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineErrorFormatting(t *testing.T) {
	t.Run("with stage", func(t *testing.T) {
		err := NewStageError(StageClean, fmt.Errorf("boom"))
		assert.Equal(t, "[stage] clean: stage execution failed", err.Error())
	})

	t.Run("without stage", func(t *testing.T) {
		err := NewFatalInputError("no rows to process", nil)
		assert.Equal(t, "[fatal_input] no rows to process", err.Error())
	})

	t.Run("nil error", func(t *testing.T) {
		var err *PipelineError
		assert.Equal(t, "unknown pipeline error", err.Error())
	})
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := context.Canceled
	err := NewCancellationError(StageTrends, cause)

	assert.True(t, errors.Is(err, context.Canceled))

	var pErr *PipelineError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, ErrorTypeCancellation, pErr.Type)
	assert.Equal(t, StageTrends, pErr.Stage)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"fatal input", NewFatalInputError("empty", nil), true},
		{"stage error", NewStageError(StageValidate, fmt.Errorf("x")), false},
		{"cancellation", NewCancellationError(StageClean, context.Canceled), false},
		{"foreign error", fmt.Errorf("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeFatalInput, GetErrorType(NewFatalInputError("empty", nil)))
	assert.Equal(t, ErrorTypeStage, GetErrorType(fmt.Errorf("foreign")))
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
}

func TestWrapError(t *testing.T) {
	t.Run("foreign error gets stage context", func(t *testing.T) {
		wrapped := WrapError(fmt.Errorf("disk full"), StageQualityGate)
		require.NotNil(t, wrapped)
		assert.Equal(t, ErrorTypeStage, wrapped.Type)
		assert.Equal(t, StageQualityGate, wrapped.Stage)
		assert.Equal(t, "disk full", wrapped.Message)
	})

	t.Run("pipeline error keeps its type and gains a stage", func(t *testing.T) {
		orig := NewFatalInputError("empty", nil)
		wrapped := WrapError(orig, StageValidate)
		assert.Equal(t, ErrorTypeFatalInput, wrapped.Type)
		assert.Equal(t, StageValidate, wrapped.Stage)
	})

	t.Run("existing stage is preserved", func(t *testing.T) {
		orig := NewStageError(StageClean, fmt.Errorf("x"))
		wrapped := WrapError(orig, StageTrends)
		assert.Equal(t, StageClean, wrapped.Stage)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, WrapError(nil, StageClean))
	})
}

func TestNewDegradedError(t *testing.T) {
	err := NewDegradedError(0.062, 0.05)
	assert.Equal(t, ErrorTypeDegraded, err.Type)
	assert.Contains(t, err.Error(), "6.20%")
	assert.Contains(t, err.Error(), "5.00%")
	assert.InDelta(t, 0.062, err.Context["rate"].(float64), 1e-9)
}

func TestErrorList(t *testing.T) {
	var list ErrorList

	assert.False(t, list.HasErrors())
	assert.Nil(t, list.ErrOrNil())
	assert.Equal(t, "no errors", list.Error())

	list.Add(nil)
	assert.False(t, list.HasErrors())

	list.Add(NewStageError(StageCorrelate, fmt.Errorf("first")))
	assert.True(t, list.HasErrors())
	assert.Equal(t, "[stage] correlate: stage execution failed", list.Error())

	list.Add(NewFatalInputError("second", nil))
	assert.Contains(t, list.Error(), "2 errors occurred")
	assert.Error(t, list.ErrOrNil())
	assert.Len(t, list.Errors, 2)
}
