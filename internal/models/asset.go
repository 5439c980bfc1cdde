package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AssetID is the opaque primary key assigned by the remote store.
// Rows keyed by integers and rows keyed by uuids both decode into it.
type AssetID string

// UnmarshalJSON accepts either a JSON string or a JSON number
func (id *AssetID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.New("asset id cannot be null")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = AssetID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("asset id must be a string or number: %w", err)
	}
	*id = AssetID(n.String())
	return nil
}

func (id AssetID) String() string {
	return string(id)
}

// Asset represents a tracked physical item. Everything except ID, Name and
// CreatedAt may be absent on the remote row.
type Asset struct {
	ID               AssetID   `json:"id"`
	Name             string    `json:"name"`
	Code             *string   `json:"code,omitempty"`
	Department       *string   `json:"department,omitempty"`
	StaffName        *string   `json:"staff_name,omitempty"`
	Qty              *int      `json:"qty,omitempty"`
	Condition        *string   `json:"condition,omitempty"`
	NeedRepair       *bool     `json:"need_repair,omitempty"`
	FundingSource    *string   `json:"funding_source,omitempty"`
	PurchaseDate     *string   `json:"purchase_date,omitempty"` // YYYY-MM-DD
	Description      *string   `json:"description,omitempty"`
	ImageURLs        []string  `json:"image_urls,omitempty"`
	Depreciation     *float64  `json:"depreciation,omitempty"`
	UnitCost         *float64  `json:"unit_cost,omitempty"`
	SupplierName     *string   `json:"supplier_name,omitempty"`
	PhysicalLocation *string   `json:"physical_location,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers can edit without touching the cached row
func (a Asset) Clone() Asset {
	out := a
	out.Code = clonePtr(a.Code)
	out.Department = clonePtr(a.Department)
	out.StaffName = clonePtr(a.StaffName)
	out.Qty = clonePtr(a.Qty)
	out.Condition = clonePtr(a.Condition)
	out.NeedRepair = clonePtr(a.NeedRepair)
	out.FundingSource = clonePtr(a.FundingSource)
	out.PurchaseDate = clonePtr(a.PurchaseDate)
	out.Description = clonePtr(a.Description)
	out.Depreciation = clonePtr(a.Depreciation)
	out.UnitCost = clonePtr(a.UnitCost)
	out.SupplierName = clonePtr(a.SupplierName)
	out.PhysicalLocation = clonePtr(a.PhysicalLocation)
	if a.ImageURLs != nil {
		out.ImageURLs = append([]string(nil), a.ImageURLs...)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
