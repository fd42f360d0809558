package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/shared/testutil"
)

func TestNewErrorHandler(t *testing.T) {
	tests := []struct {
		name         string
		includeStack bool
	}{
		{name: "with stack traces", includeStack: true},
		{name: "without stack traces", includeStack: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)

			handler := NewErrorHandler(logger, tt.includeStack)

			assert.NotNil(t, handler)
			assert.Equal(t, tt.includeStack, handler.includeStack)
			assert.NotNil(t, handler.logger)
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "nil error writes nothing",
			err:        nil,
			wantStatus: 0,
		},
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error maps by code",
			err:        ErrNoResult,
			wantStatus: http.StatusNotFound,
			wantType:   TypeNoResult,
		},
		{
			name:       "fatal input error maps to 422",
			err:        pipeline.NewFatalInputError("empty input file", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSourceUndecodable,
		},
		{
			name:       "stage error maps to run failed",
			err:        pipeline.WrapError(errors.New("quantile sort failed"), "aggregate_states"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeRunFailed,
		},
		{
			name:       "not found text fallback",
			err:        errors.New("state summary not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "rate limit text fallback",
			err:        errors.New("rate limit exceeded for client"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
		},
		{
			name:       "unknown error is internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/analytics/states", nil)

			handler.HandleError(rec, req, tt.err)

			if tt.err == nil {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Zero(t, rec.Body.Len())
				return
			}

			assert.Equal(t, tt.wantStatus, rec.Code)

			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem["type"])
			assert.Equal(t, "/api/analytics/states", problem["instance"])
		})
	}
}

func TestErrorHandler_PipelineErrorExtensions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	pErr := pipeline.NewFatalInputError("no records survived validation and cleaning", nil)
	pErr.Stage = "clean"
	pErr.Context = map[string]interface{}{"raw_rows": 10, "rejected_rows": 10}

	req := httptest.NewRequest(http.MethodPost, "/api/analytics/run", nil)
	problem := handler.ErrorToProblem(pErr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, "clean", problem.Extensions["stage"])
	require.NotNil(t, problem.Extensions["context"])
}

func TestErrorHandler_CancelledRunKeepsStage(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	cancelled := &pipeline.PipelineError{
		Type:    pipeline.ErrorTypeCancellation,
		Stage:   "trends",
		Message: "run cancelled during trends",
		Cause:   context.Canceled,
	}

	req := httptest.NewRequest(http.MethodPost, "/api/analytics/run", nil)
	problem := handler.ErrorToProblem(cancelled, req)

	assert.Equal(t, http.StatusGatewayTimeout, problem.Status)
	assert.Equal(t, TypeTimeout, problem.Type)
	assert.Equal(t, "trends", problem.Extensions["stage"])
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, handlerLogs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)

	handler.HandlePanic(rec, req, "unexpected nil map")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, handlerLogs.HasMessage("panic recovered"))

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, TypeInternal, problem["type"])
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/missing", nil)

		handler.NotFound(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/analytics/states", nil)

		handler.MethodNotAllowed(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

		var problem map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Contains(t, problem["detail"], "DELETE")
	})
}
