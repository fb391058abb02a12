package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-finder/internal/model"
)

// ErrNotFound is returned when an operation targets a lead that does not exist.
var ErrNotFound = eris.New("lead not found")

// Store defines the persistence interface for discovered leads.
type Store interface {
	// UpsertLead inserts the lead or, when a row with the same place id
	// already exists, overwrites its scalar fields and email list. The
	// row's creation time is set once at insert and never changes.
	UpsertLead(ctx context.Context, lead model.Lead) error

	// ListLeads returns all leads ordered by creation time descending,
	// with email lists expanded.
	ListLeads(ctx context.Context) ([]model.Lead, error)

	// DeleteLead removes the lead with the given place id. Returns
	// ErrNotFound when no such row exists.
	DeleteLead(ctx context.Context, placeID string) error

	CountLeads(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
