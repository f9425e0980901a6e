package dossierjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pivottriage/internal/logger"
	"pivottriage/pkg/models"
)

// Writer stores the latest outcome as an indented JSON document.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates a writer for path, creating its directory.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	logger.Infof("Dossier JSON writer initialized: %s", path)
	return &Writer{path: path}, nil
}

// WriteOutcome replaces the file with the outcome. The document is written to
// a temporary file first so readers never see a partial dossier.
func (w *Writer) WriteOutcome(outcome *models.Outcome) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}
	data = append(data, '\n')

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("failed to replace output file: %w", err)
	}
	return nil
}

// Close is a no-op; each write is self-contained.
func (w *Writer) Close() error {
	return nil
}
