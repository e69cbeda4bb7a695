package export

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"dot5_panel/internal/panel/session"
	"dot5_panel/internal/shared/logger"
	"dot5_panel/internal/shared/types"
)

const (
	DefaultFilename = "dot5_results.csv"
	MediaType       = "text/csv;charset=utf-8"
)

// CSVExporter is the part of the engine client the exporter needs.
type CSVExporter interface {
	ExportCSV(ctx context.Context, results []types.ResultRecord) (string, error)
}

// Artifact 是可供下载的 CSV 文件。
type Artifact struct {
	Name      string
	MediaType string
	Body      []byte
}

// Exporter 将当前会话的结果集交给引擎生成 CSV。
type Exporter struct {
	client   CSVExporter
	store    *session.Store
	filename string
}

// New creates an Exporter reading from store.
func New(client CSVExporter, store *session.Store, filename string) *Exporter {
	if filename == "" {
		filename = DefaultFilename
	}
	return &Exporter{client: client, store: store, filename: filename}
}

// Export returns (nil, nil) without any network call when the session is empty.
func (e *Exporter) Export(ctx context.Context) (*Artifact, error) {
	results := e.store.Results()
	if len(results) == 0 {
		return nil, nil
	}

	l := logger.WithComponent("Panel/Export")
	csv, err := e.client.ExportCSV(ctx, results)
	if err != nil {
		return nil, err
	}
	l.Info().Int("rows", len(results)).Str("run_id", e.store.RunID()).Msg("CSV export received.")

	return &Artifact{
		Name:      e.filename,
		MediaType: MediaType,
		Body:      []byte(csv),
	}, nil
}

// ServeHTTP writes the artifact as an attachment download.
func (a *Artifact) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", a.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
	w.WriteHeader(http.StatusOK)
	w.Write(a.Body)
}

// Save writes the artifact into dir and returns the final path. The data goes
// through a temporary file that is always closed, and removed unless the
// final rename succeeded.
func (a *Artifact) Save(dir string) (path string, err error) {
	tmp, err := os.CreateTemp(dir, "."+a.Name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary export file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(a.Body); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}

	path = filepath.Join(dir, a.Name)
	if err = os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to move export file into place: %w", err)
	}
	return path, nil
}
