// Package knownusers keeps the locally cached display names of users the
// system has seen, keyed by user id.
package knownusers

import (
	"context"

	"principalcheck/internal/principal/models"
)

// Store resolves a user id to its locally cached record.
type Store interface {
	// GetOrCreate returns the record for id, creating one whose full name is
	// the id itself when none exists.
	GetOrCreate(ctx context.Context, id string) (*models.KnownUser, error)
	// Save inserts or replaces a record.
	Save(ctx context.Context, user *models.KnownUser) error
	// Delete removes a record, returning sentinel.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}
