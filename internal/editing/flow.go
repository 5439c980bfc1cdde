// Package editing mediates between the asset detail form, the remote store
// and the in-memory collection. Local state only changes after the store
// confirms a mutation.
package editing

import (
	"context"
	"fmt"

	"asset-dashboard/internal/collection"
	"asset-dashboard/internal/models"
	"asset-dashboard/internal/store"

	"go.uber.org/zap"
)

// Outcome is the non-error result of a save or delete attempt
type Outcome int

const (
	NothingToSave Outcome = iota
	Saved
	Deleted
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case NothingToSave:
		return "nothing to save"
	case Saved:
		return "saved"
	case Deleted:
		return "deleted"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// DeletePrompt is shown before an asset is removed
const DeletePrompt = "Are you sure you want to delete this asset?"

// Confirmer asks the administrator to approve a destructive action
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

var (
	Approve = ConfirmFunc(func(string) bool { return true })
	Decline = ConfirmFunc(func(string) bool { return false })
)

// SaveResult describes a completed save
type SaveResult struct {
	Outcome Outcome
	Changes models.Changes
	// Asset is the row now held by the collection
	Asset models.Asset
	// Echoed is false when the store confirmed without returning the row
	// and Asset was merged locally
	Echoed bool
}

// Flow runs saves and deletes for one collection
type Flow struct {
	model    *collection.Model
	store    store.AssetStore
	recorder collection.Recorder
	log      *zap.Logger
}

func NewFlow(model *collection.Model, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		model:    model,
		store:    model.Store(),
		recorder: model.Recorder(),
		log:      log,
	}
}

// Diff is the minimal set of editable fields whose edited value differs
func Diff(original, edited models.Asset) models.Changes {
	return models.DiffEditable(original, edited)
}

// Save sends only the changed editable fields. With no changes the store is
// not contacted and the outcome is NothingToSave.
func (f *Flow) Save(ctx context.Context, original, edited models.Asset) (SaveResult, error) {
	changes := Diff(original, edited)
	if len(changes) == 0 {
		return SaveResult{Outcome: NothingToSave, Asset: original}, nil
	}

	row, err := f.store.UpdateFields(ctx, original.ID, changes)
	f.recorder.MutationFinished("update", err)
	if err != nil {
		f.log.Warn("asset update failed",
			zap.String("asset_id", original.ID.String()),
			zap.Strings("columns", changes.Columns()),
			zap.Error(err))
		return SaveResult{Changes: changes}, fmt.Errorf("failed to save: %w", err)
	}

	res := SaveResult{Outcome: Saved, Changes: changes}
	if row != nil {
		res.Asset = *row
		res.Echoed = true
	} else {
		res.Asset = changes.Merge(original)
	}
	f.model.ApplyUpdate(res.Asset)

	f.log.Info("asset updated",
		zap.String("asset_id", original.ID.String()),
		zap.Strings("columns", changes.Columns()),
		zap.Bool("echoed", res.Echoed))
	return res, nil
}

// Delete removes an asset after the confirmer approves. Declining does nothing.
func (f *Flow) Delete(ctx context.Context, id models.AssetID, c Confirmer) (Outcome, error) {
	if c == nil || !c.Confirm(DeletePrompt) {
		return Cancelled, nil
	}

	err := f.store.Delete(ctx, id)
	f.recorder.MutationFinished("delete", err)
	if err != nil {
		f.log.Warn("asset delete failed", zap.String("asset_id", id.String()), zap.Error(err))
		return Cancelled, fmt.Errorf("failed to delete: %w", err)
	}

	f.model.ApplyDelete(id)
	f.log.Info("asset deleted", zap.String("asset_id", id.String()))
	return Deleted, nil
}
