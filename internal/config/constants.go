package config

import "time"

// Application constants for the BRFSS Pulse surveillance pipeline
const (
	// Application Info
	AppName   = "BRFSS Pulse"
	AppVendor = "Public Health Analytics"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir   = "data"
	DefaultRawDir    = "data/raw"
	DefaultOutputDir = "data/output"
	DefaultLogsDir   = "logs"
	DefaultWebDir    = "web"

	// Operation Timeouts
	DefaultPipelineTimeout = 2 * time.Minute
	IngestTimeout          = 5 * time.Minute
	ExportTimeout          = 1 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Survey Data Ingest
	SurveyFilePattern = `(?i)brfss.*\.(csv|xlsx)$`

	// Output Artifacts
	DashboardFileName        = "state_health_data.json"
	ValidationReportFileName = "data_validation_report.txt"
	CorrelationFileName      = "correlation_matrix.csv"
	StateSummaryFileName     = "state_summary.csv"

	// API Endpoints (internal)
	APIBasePath        = "/api"
	AnalyticsEndpoint  = "/api/analytics"
	HealthEndpoint     = "/api/health"
	MetricsEndpoint    = "/metrics"
	WebSocketEndpoint  = "/ws"
)
