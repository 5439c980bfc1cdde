// Package dashboard holds the per-session selection and display state of a
// mounted asset dashboard and maps the collection into what is shown.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"asset-dashboard/internal/collection"
	"asset-dashboard/internal/editing"
	"asset-dashboard/internal/models"

	"go.uber.org/zap"
)

var (
	ErrNoOpenAsset     = errors.New("no asset is open")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrInvalidViewMode = errors.New("invalid view mode")
)

// ViewMode selects card or table rendering of an asset listing
type ViewMode string

const (
	Grid ViewMode = "grid"
	List ViewMode = "list"
)

// ParseViewMode accepts "grid" or "list"
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case Grid, List:
		return ViewMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, s)
}

const (
	AllAssetsTitle = "All Assets"

	noticeNothingToSave = "Nothing to save"
	noticeSaved         = "Asset updated"
	noticeDeleted       = "Asset deleted"
)

// View is everything a page render needs
type View struct {
	Loaded    bool
	Loading   bool
	LoadError string

	Search     string
	Mode       ViewMode
	AllAssets  bool
	Department string

	// ShowDepartments selects the department card list over an asset listing
	ShowDepartments bool
	Departments     []collection.DepartmentCount

	Title    string
	ShowBack bool
	Assets   []models.Asset

	Open        *models.Asset
	DetailError string
	Notice      string
}

// Dashboard is one mounted dashboard. Its state resets on every mount.
type Dashboard struct {
	model *collection.Model
	flow  *editing.Flow
	log   *zap.Logger

	mu         sync.Mutex
	search     string
	department string
	mode       ViewMode
	allAssets  bool
	open       models.AssetID
	detailErr  string
	notice     string
}

// New creates a dashboard in its default state over model
func New(model *collection.Model, log *zap.Logger) *Dashboard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dashboard{
		model: model,
		flow:  editing.NewFlow(model, log),
		log:   log,
		mode:  Grid,
	}
}

// Model is the collection behind the dashboard
func (d *Dashboard) Model() *collection.Model {
	return d.model
}

// Reload refetches the collection. The error is also kept for View.
func (d *Dashboard) Reload(ctx context.Context) error {
	d.clearMessages()
	return d.model.Load(ctx)
}

func (d *Dashboard) SelectDepartment(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.department = label
	d.notice = ""
}

func (d *Dashboard) SetAllAssets(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allAssets = on
	d.notice = ""
}

// BackToDepartments clears the department selection. Search text, view mode
// and the all-assets toggle are kept.
func (d *Dashboard) BackToDepartments() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.department = ""
	d.notice = ""
}

func (d *Dashboard) SetSearch(q string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.search = q
}

func (d *Dashboard) SetViewMode(mode string) error {
	m, err := ParseViewMode(mode)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = m
	return nil
}

// OpenAsset opens the detail of id, replacing any open asset
func (d *Dashboard) OpenAsset(id models.AssetID) error {
	if _, ok := d.model.Get(id); !ok {
		return ErrAssetNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = id
	d.detailErr = ""
	d.notice = ""
	return nil
}

func (d *Dashboard) CloseAsset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = ""
	d.detailErr = ""
}

// OpenAssetRow returns the current row of the open asset
func (d *Dashboard) OpenAssetRow() (models.Asset, error) {
	d.mu.Lock()
	id := d.open
	d.mu.Unlock()
	if id == "" {
		return models.Asset{}, ErrNoOpenAsset
	}
	a, ok := d.model.Get(id)
	if !ok {
		return models.Asset{}, ErrNoOpenAsset
	}
	return a, nil
}

// Save stores edited over the open asset. Failures stay on the open detail.
func (d *Dashboard) Save(ctx context.Context, edited models.Asset) (editing.Outcome, error) {
	original, err := d.OpenAssetRow()
	if err != nil {
		return editing.NothingToSave, err
	}
	edited.ID = original.ID

	res, err := d.flow.Save(ctx, original, edited)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.detailErr = err.Error()
		d.notice = ""
		return res.Outcome, err
	}
	d.detailErr = ""
	if res.Outcome == editing.NothingToSave {
		d.notice = noticeNothingToSave
	} else {
		d.notice = noticeSaved
	}
	return res.Outcome, nil
}

// SaveForm parses the detail form over the open asset and saves it
func (d *Dashboard) SaveForm(ctx context.Context, form url.Values) (editing.Outcome, error) {
	original, err := d.OpenAssetRow()
	if err != nil {
		return editing.NothingToSave, err
	}
	edited, err := editing.ApplyForm(original, form)
	if err != nil {
		d.setDetailError(err.Error())
		return editing.NothingToSave, err
	}
	return d.Save(ctx, edited)
}

// Delete removes the open asset once c approves. A successful delete closes
// the detail; a failed one keeps it open with the error.
func (d *Dashboard) Delete(ctx context.Context, c editing.Confirmer) (editing.Outcome, error) {
	original, err := d.OpenAssetRow()
	if err != nil {
		return editing.Cancelled, err
	}

	out, err := d.flow.Delete(ctx, original.ID, c)
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case err != nil:
		d.detailErr = err.Error()
		d.notice = ""
	case out == editing.Deleted:
		if d.open == original.ID {
			d.open = ""
		}
		d.detailErr = ""
		d.notice = noticeDeleted
	}
	return out, err
}

// Listing is the asset list currently displayed, empty on the department page
func (d *Dashboard) Listing() []models.Asset {
	return d.View().Assets
}

// View derives the display model from the current state and collection
func (d *Dashboard) View() View {
	d.mu.Lock()
	v := View{
		Search:      d.search,
		Mode:        d.mode,
		AllAssets:   d.allAssets,
		Department:  d.department,
		DetailError: d.detailErr,
		Notice:      d.notice,
	}
	open := d.open
	d.mu.Unlock()

	v.Loaded = d.model.Loaded()
	v.Loading = d.model.Loading()
	v.LoadError = d.model.Err()

	v.ShowBack = v.Department != ""
	filtered := d.model.Filtered(v.Search)
	switch {
	case v.AllAssets:
		v.Title = AllAssetsTitle
		v.Assets = filtered
	case v.Department != "":
		v.Title = v.Department
		v.Assets = collection.GroupByDepartment(filtered).Lookup(v.Department)
		if v.Assets == nil {
			v.Assets = []models.Asset{}
		}
	default:
		v.ShowDepartments = true
		v.Departments = collection.GroupByDepartment(filtered).Departments()
	}

	if open != "" {
		if a, ok := d.model.Get(open); ok {
			v.Open = &a
		}
	}
	return v
}

func (d *Dashboard) setDetailError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detailErr = msg
	d.notice = ""
}

func (d *Dashboard) clearMessages() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detailErr = ""
	d.notice = ""
}
