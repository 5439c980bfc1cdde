// Package store talks to the remote assets table. The dashboard never owns
// asset data; every read and mutation is a pass-through to the hosted backend.
package store

import (
	"context"
	"fmt"

	"asset-dashboard/internal/models"
)

// Table is the remote relation holding asset rows
const Table = "assets"

// AssetStore is the remote asset table as seen by the dashboard.
//
// UpdateFields returns a nil asset when the backend confirms the update
// without echoing the row back.
type AssetStore interface {
	FetchAll(ctx context.Context) ([]models.Asset, error)
	UpdateFields(ctx context.Context, id models.AssetID, changes models.Changes) (*models.Asset, error)
	Delete(ctx context.Context, id models.AssetID) error
}

// Error is a failed remote operation. Message is safe to show to the administrator.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failed", e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op string, err error) *Error {
	return &Error{Op: op, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}
