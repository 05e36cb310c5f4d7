package export

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"newscluster/internal/domain"
)

// WriteSummariesFile writes summaries as an indented JSON array.
func WriteSummariesFile(path string, summaries []domain.Summary) error {
	if summaries == nil {
		summaries = []domain.Summary{}
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadSummariesFile reads a file written by WriteSummariesFile.
func ReadSummariesFile(path string) ([]domain.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var summaries []domain.Summary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}
