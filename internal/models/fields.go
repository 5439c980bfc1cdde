package models

import (
	"reflect"
	"sort"
)

// FieldKind describes how an editable field is rendered and parsed
type FieldKind string

const (
	KindText  FieldKind = "text"
	KindInt   FieldKind = "int"
	KindFloat FieldKind = "float"
	KindBool  FieldKind = "bool"
	KindDate  FieldKind = "date"
	KindList  FieldKind = "list"
)

// EditableField is one column an administrator may change from the detail form.
// Get returns the normalized value: nil for absent or empty, otherwise
// string, int, float64, bool or []string.
type EditableField struct {
	Column string
	Label  string
	Kind   FieldKind
	Get    func(a *Asset) any
	Set    func(a *Asset, v any)
}

// EditableFields is the fixed set of columns that may appear in an update
// payload, in form order.
var EditableFields = []EditableField{
	textField("department", "Department", func(a *Asset) **string { return &a.Department }),
	textField("staff_name", "Staff Name", func(a *Asset) **string { return &a.StaffName }),
	textField("code", "Asset Code", func(a *Asset) **string { return &a.Code }),
	dateField("purchase_date", "Purchase Date", func(a *Asset) **string { return &a.PurchaseDate }),
	textField("description", "Description", func(a *Asset) **string { return &a.Description }),
	{
		Column: "qty", Label: "Quantity", Kind: KindInt,
		Get: func(a *Asset) any {
			if a.Qty == nil {
				return nil
			}
			return *a.Qty
		},
		Set: func(a *Asset, v any) {
			if n, ok := v.(int); ok {
				a.Qty = &n
				return
			}
			a.Qty = nil
		},
	},
	floatField("unit_cost", "Unit Cost", func(a *Asset) **float64 { return &a.UnitCost }),
	textField("supplier_name", "Supplier Name", func(a *Asset) **string { return &a.SupplierName }),
	textField("funding_source", "Funding Source", func(a *Asset) **string { return &a.FundingSource }),
	textField("physical_location", "Physical Location", func(a *Asset) **string { return &a.PhysicalLocation }),
	floatField("depreciation", "Depreciation", func(a *Asset) **float64 { return &a.Depreciation }),
	textField("condition", "Condition", func(a *Asset) **string { return &a.Condition }),
	{
		// an absent repair flag renders as unchecked, so it compares as false
		Column: "need_repair", Label: "Needs Repair", Kind: KindBool,
		Get: func(a *Asset) any {
			return a.NeedRepair != nil && *a.NeedRepair
		},
		Set: func(a *Asset, v any) {
			b, _ := v.(bool)
			a.NeedRepair = &b
		},
	},
	{
		Column: "image_urls", Label: "Images", Kind: KindList,
		Get: func(a *Asset) any {
			if len(a.ImageURLs) == 0 {
				return nil
			}
			return append([]string(nil), a.ImageURLs...)
		},
		Set: func(a *Asset, v any) {
			if l, ok := v.([]string); ok && len(l) > 0 {
				a.ImageURLs = append([]string(nil), l...)
				return
			}
			a.ImageURLs = nil
		},
	},
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, len(EditableFields))
	for i, f := range EditableFields {
		m[f.Column] = i
	}
	return m
}()

// LookupField returns the editable field for a column name
func LookupField(column string) (EditableField, bool) {
	i, ok := fieldIndex[column]
	if !ok {
		return EditableField{}, false
	}
	return EditableFields[i], true
}

// Changes is a partial update payload keyed by column name.
// A nil value clears the column.
type Changes map[string]any

// Columns returns the changed columns in form order
func (c Changes) Columns() []string {
	cols := make([]string, 0, len(c))
	for col := range c {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool {
		return fieldIndex[cols[i]] < fieldIndex[cols[j]]
	})
	return cols
}

// DiffEditable compares every editable field of edited against original and
// returns only the ones that differ.
func DiffEditable(original, edited Asset) Changes {
	out := Changes{}
	for _, f := range EditableFields {
		before, after := f.Get(&original), f.Get(&edited)
		if !reflect.DeepEqual(before, after) {
			out[f.Column] = after
		}
	}
	return out
}

// Merge returns a copy of a with the changes overlaid. Unknown columns are ignored.
func (c Changes) Merge(a Asset) Asset {
	out := a.Clone()
	for col, v := range c {
		if f, ok := LookupField(col); ok {
			f.Set(&out, v)
		}
	}
	return out
}

func textField(col, label string, ref func(*Asset) **string) EditableField {
	return stringField(col, label, KindText, ref)
}

func dateField(col, label string, ref func(*Asset) **string) EditableField {
	return stringField(col, label, KindDate, ref)
}

func stringField(col, label string, kind FieldKind, ref func(*Asset) **string) EditableField {
	return EditableField{
		Column: col, Label: label, Kind: kind,
		Get: func(a *Asset) any {
			p := *ref(a)
			if p == nil || *p == "" {
				return nil
			}
			return *p
		},
		Set: func(a *Asset, v any) {
			if s, ok := v.(string); ok && s != "" {
				*ref(a) = &s
				return
			}
			*ref(a) = nil
		},
	}
}

func floatField(col, label string, ref func(*Asset) **float64) EditableField {
	return EditableField{
		Column: col, Label: label, Kind: KindFloat,
		Get: func(a *Asset) any {
			p := *ref(a)
			if p == nil {
				return nil
			}
			return *p
		},
		Set: func(a *Asset, v any) {
			if f, ok := v.(float64); ok {
				*ref(a) = &f
				return
			}
			*ref(a) = nil
		},
	}
}
