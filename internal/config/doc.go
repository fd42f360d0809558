// Package config provides centralized configuration management for the
// BRFSS Pulse pipeline. It handles loading configuration from multiple
// sources, validation, and a type-safe API for accessing configuration
// values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern BRFSS_* for namespacing:
//
//	BRFSS_SERVER_PORT=8080
//	BRFSS_LOGGING_LEVEL=info
//	BRFSS_PIPELINE_MAX_REJECTION_RATE=0.05
//	BRFSS_INGEST_SOURCE=data/raw/brfss_health_data.csv
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	input := paths.GetRawPath("brfss_health_data.csv")
//	dashboard := paths.DashboardJSON
//
// # Validation
//
// All configuration is validated at load time to ensure required fields
// are present, values are within acceptable ranges, and the pipeline
// parameters describe a runnable configuration.
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
