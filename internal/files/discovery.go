package files

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// sourceExtensions are the formats the ingest loader decodes
var sourceExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
}

// Discovery lists the survey extracts available for a pipeline run
type Discovery struct {
	dir    string
	logger *slog.Logger
}

// NewDiscovery creates a discovery over the given source directory
func NewDiscovery(dir string, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{dir: dir, logger: logger}
}

// ListSurveySources returns the loadable files in the source directory,
// newest first. Office lock files and dotfiles are skipped; a missing
// directory lists as empty.
func (d *Discovery) ListSurveySources() ([]FileInfo, error) {
	sources, err := scanDir(d.dir, func(name string) bool {
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			return false
		}
		return sourceExtensions[strings.ToLower(filepath.Ext(name))]
	})
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Survey sources listed",
		slog.String("directory", d.dir),
		slog.Int("count", len(sources)))
	return sources, nil
}

// scanDir lists the regular files a filter keeps, newest first with name
// ties alphabetical. A missing directory scans as empty.
func scanDir(dir string, keep func(name string) bool) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !keep(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:       entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModifiedAt.Equal(files[j].ModifiedAt) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModifiedAt.After(files[j].ModifiedAt)
	})
	return files, nil
}
