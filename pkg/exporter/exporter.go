package exporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"asset-dashboard/internal/format"
	"asset-dashboard/internal/models"

	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

// Column maps one asset attribute to a worksheet column
type Column struct {
	Key    string `yaml:"key"`
	Header string `yaml:"header"`
}

// Layout represents the YAML export layout
type Layout struct {
	Version int      `yaml:"version"`
	Sheet   string   `yaml:"sheet"`
	Columns []Column `yaml:"columns"`
}

// Options configures an export
type Options struct {
	Layout Layout
	// Now is the reference time for the age column, defaults to time.Now()
	Now time.Time
}

// Summary reports what was written
type Summary struct {
	Sheet   string `json:"sheet"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

type cellWriter func(c *xlsx.Cell, a models.Asset, now time.Time)

var writers = map[string]cellWriter{
	"id":   func(c *xlsx.Cell, a models.Asset, _ time.Time) { c.SetString(a.ID.String()) },
	"name": func(c *xlsx.Cell, a models.Asset, _ time.Time) { c.SetString(format.DisplayName(a)) },
	"code": textCell(func(a models.Asset) *string { return a.Code }),
	"department": func(c *xlsx.Cell, a models.Asset, _ time.Time) {
		c.SetString(format.DepartmentLabel(a))
	},
	"staff_name": textCell(func(a models.Asset) *string { return a.StaffName }),
	"qty": func(c *xlsx.Cell, a models.Asset, _ time.Time) {
		if a.Qty != nil {
			c.SetInt(*a.Qty)
		}
	},
	"condition": textCell(func(a models.Asset) *string { return a.Condition }),
	"need_repair": func(c *xlsx.Cell, a models.Asset, _ time.Time) {
		c.SetBool(a.NeedRepair != nil && *a.NeedRepair)
	},
	"funding_source": textCell(func(a models.Asset) *string { return a.FundingSource }),
	"purchase_date":  textCell(func(a models.Asset) *string { return a.PurchaseDate }),
	"age_years": func(c *xlsx.Cell, a models.Asset, now time.Time) {
		if years, ok := format.AgeYears(a.PurchaseDate, now); ok {
			c.SetInt(years)
		}
	},
	"description":       textCell(func(a models.Asset) *string { return a.Description }),
	"unit_cost":         floatCell(func(a models.Asset) *float64 { return a.UnitCost }),
	"depreciation":      floatCell(func(a models.Asset) *float64 { return a.Depreciation }),
	"supplier_name":     textCell(func(a models.Asset) *string { return a.SupplierName }),
	"physical_location": textCell(func(a models.Asset) *string { return a.PhysicalLocation }),
	"image_urls": func(c *xlsx.Cell, a models.Asset, _ time.Time) {
		if len(a.ImageURLs) > 0 {
			c.SetString(strings.Join(a.ImageURLs, "\n"))
		}
	},
	"created_at": func(c *xlsx.Cell, a models.Asset, _ time.Time) {
		if !a.CreatedAt.IsZero() {
			c.SetString(a.CreatedAt.UTC().Format(time.RFC3339))
		}
	},
}

func textCell(get func(models.Asset) *string) cellWriter {
	return func(c *xlsx.Cell, a models.Asset, _ time.Time) {
		if p := get(a); p != nil {
			c.SetString(*p)
		}
	}
}

func floatCell(get func(models.Asset) *float64) cellWriter {
	return func(c *xlsx.Cell, a models.Asset, _ time.Time) {
		if p := get(a); p != nil {
			c.SetFloat(*p)
		}
	}
}

// DefaultLayout exports every column in detail form order
func DefaultLayout() Layout {
	return Layout{
		Version: 1,
		Sheet:   "Assets",
		Columns: []Column{
			{Key: "id", Header: "ID"},
			{Key: "name", Header: "Name"},
			{Key: "code", Header: "Asset Code"},
			{Key: "department", Header: "Department"},
			{Key: "staff_name", Header: "Staff Name"},
			{Key: "qty", Header: "Quantity"},
			{Key: "condition", Header: "Condition"},
			{Key: "need_repair", Header: "Needs Repair"},
			{Key: "funding_source", Header: "Funding Source"},
			{Key: "purchase_date", Header: "Purchase Date"},
			{Key: "age_years", Header: "Age (yrs)"},
			{Key: "description", Header: "Description"},
			{Key: "unit_cost", Header: "Unit Cost"},
			{Key: "depreciation", Header: "Depreciation (%)"},
			{Key: "supplier_name", Header: "Supplier Name"},
			{Key: "physical_location", Header: "Physical Location"},
			{Key: "image_urls", Header: "Images"},
			{Key: "created_at", Header: "Created At"},
		},
	}
}

// LoadLayout reads a YAML layout file and checks every column key
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func (l Layout) Validate() error {
	if len(l.Columns) == 0 {
		return fmt.Errorf("layout has no columns")
	}
	for i, c := range l.Columns {
		if _, ok := writers[c.Key]; !ok {
			return fmt.Errorf("column %d: unknown key %q", i+1, c.Key)
		}
	}
	return nil
}

// Export writes assets as a single-sheet workbook, one row per asset after
// the header row, in the order given.
func Export(w io.Writer, assets []models.Asset, opts Options) (Summary, error) {
	layout := opts.Layout
	if len(layout.Columns) == 0 {
		layout = DefaultLayout()
	}
	if layout.Sheet == "" {
		layout.Sheet = "Assets"
	}
	if err := layout.Validate(); err != nil {
		return Summary{}, err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(layout.Sheet)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, c := range layout.Columns {
		name := c.Header
		if name == "" {
			name = c.Key
		}
		header.AddCell().SetString(name)
	}

	for _, a := range assets {
		row := sheet.AddRow()
		for _, c := range layout.Columns {
			writers[c.Key](row.AddCell(), a, now)
		}
	}

	if err := file.Write(w); err != nil {
		return Summary{}, fmt.Errorf("failed to write workbook: %w", err)
	}
	return Summary{Sheet: layout.Sheet, Rows: len(assets), Columns: len(layout.Columns)}, nil
}
