// Package files resolves the survey files the service exposes over HTTP.
//
// Manager lists and opens run artifacts under the output directory.
// Artifact names are bare file names; names carrying path elements are
// rejected so a download request can never leave the output tree.
//
// Discovery lists the survey extracts in the raw data directory that the
// ingest loader can decode, so the dashboard can offer them as run
// sources without the operator typing paths.
package files
