package http

import (
	"context"

	"brfsspulse/internal/pipeline"
	"brfsspulse/internal/surveillance"
	api "brfsspulse/pkg/contracts/api/v1"
)

// AnalyticsServiceInterface defines the interface for analytics operations
type AnalyticsServiceInterface interface {
	Run(ctx context.Context, req api.RunRequest) (*pipeline.Result, error)
	RunInProgress() bool

	// Result views over the cached run
	States(ctx context.Context, req api.StatesRequest) ([]surveillance.StateSummary, error)
	Trends(ctx context.Context, req api.TrendsRequest) (surveillance.TrendReport, error)
	Demographics(ctx context.Context, req api.DemographicsRequest) ([]surveillance.DimensionSummary, error)
	Correlations(ctx context.Context) ([]surveillance.CorrelationResult, error)
	Quality(ctx context.Context) (surveillance.QualityReport, error)
	Metadata(ctx context.Context) (pipeline.RunMetadata, error)
	Dashboard(ctx context.Context) (api.DashboardPayload, error)
}
