package services

import "errors"

// Service errors
var (
	// Result errors
	ErrNoResult = errors.New("no pipeline result available")

	// Run errors
	ErrRunInProgress  = errors.New("pipeline run already in progress")
	ErrSourceNotFound = errors.New("survey source file not found")

	// Query errors
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrUnknownDimension = errors.New("unknown dimension")
)
