package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"restaurant-collector/models"
)

var csvHeader = []string{
	"action", "existing_id", "name", "name_en", "category", "address", "address_en",
	"phone", "rating", "review_count", "price", "hours", "image", "latitude", "longitude",
}

// CSVWriter exports collected candidates to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteCandidates appends one row per candidate.
func (c *CSVWriter) WriteCandidates(candidates []*models.Candidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cand := range candidates {
		action, existing := "insert", ""
		if cand.IsUpdate() {
			action, existing = "update", strconv.FormatInt(cand.MatchedExistingID, 10)
		}
		row := []string{
			action,
			existing,
			cand.Name,
			deref(cand.NameEn),
			string(cand.Category),
			cand.Address,
			deref(cand.AddressEn),
			deref(cand.Phone),
			strconv.Itoa(cand.Rating),
			strconv.Itoa(cand.ReviewCount),
			string(cand.Price),
			deref(cand.Hours),
			deref(cand.Image),
			cand.Latitude,
			cand.Longitude,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
