package storage

import (
	"context"
	"fmt"

	"restaurant-collector/models"
)

// RestaurantStore is the interface the collector persists through.
type RestaurantStore interface {
	LoadExisting(ctx context.Context) ([]models.ExistingRecord, error)
	Insert(ctx context.Context, c *models.Candidate) (int64, error)
	Update(ctx context.Context, id int64, c *models.Candidate) error
	Close() error
}

// CandidateWriter is the interface for exporting collected candidates.
type CandidateWriter interface {
	WriteCandidates(candidates []*models.Candidate) error
	Close() error
}

// PersistenceError wraps a failed store operation on one record.
type PersistenceError struct {
	Op   string
	Name string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("postgres: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("postgres: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
