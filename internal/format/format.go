// Package format holds every display default the dashboard substitutes for
// absent asset fields, so views never invent their own fallbacks.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"asset-dashboard/internal/models"
)

const (
	UnknownDepartment = "Unknown Department"
	NotAvailable      = "N/A"
	Unnamed           = "Unnamed"
	PlaceholderImage  = "https://via.placeholder.com/220x140?text=No+Image"

	// DateLayout is how purchase dates are shown
	DateLayout = "Jan 2, 2006"
	// InputDateLayout is the wire and form representation of a calendar date
	InputDateLayout = "2006-01-02"
)

// DepartmentLabel is the grouping key for an asset
func DepartmentLabel(a models.Asset) string {
	if a.Department == nil || *a.Department == "" {
		return UnknownDepartment
	}
	return *a.Department
}

// DisplayName falls back from name to code to "Unnamed"
func DisplayName(a models.Asset) string {
	if a.Name != "" {
		return a.Name
	}
	if a.Code != nil && *a.Code != "" {
		return *a.Code
	}
	return Unnamed
}

// OrNA renders an optional text field
func OrNA(s *string) string {
	if s == nil || *s == "" {
		return NotAvailable
	}
	return *s
}

// Text renders an optional text field for a form input
func Text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ParseDate accepts a bare calendar date or a full timestamp
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{InputDateLayout, time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date renders an optional date, "N/A" when absent or unparseable
func Date(s *string) string {
	if s == nil {
		return NotAvailable
	}
	t, ok := ParseDate(*s)
	if !ok {
		return NotAvailable
	}
	return t.Format(DateLayout)
}

// AgeYears is the number of whole 365-day years between the purchase date and now
func AgeYears(purchase *string, now time.Time) (int, bool) {
	if purchase == nil {
		return 0, false
	}
	t, ok := ParseDate(*purchase)
	if !ok {
		return 0, false
	}
	years := math.Floor(now.Sub(t).Hours() / (24 * 365))
	return int(years), true
}

// Duration renders AgeYears as "N yrs"
func Duration(purchase *string, now time.Time) string {
	years, ok := AgeYears(purchase, now)
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%d yrs", years)
}

// DepreciationPercent clamps the depreciation to a bar width in [0,100].
// An absent value is drawn as 0.
func DepreciationPercent(d *float64) float64 {
	if d == nil || math.IsNaN(*d) {
		return 0
	}
	return math.Max(0, math.Min(100, *d))
}

// PrimaryImage is the card thumbnail
func PrimaryImage(a models.Asset) string {
	for _, u := range a.ImageURLs {
		if strings.TrimSpace(u) != "" {
			return u
		}
	}
	return PlaceholderImage
}

// Qty renders the quantity column
func Qty(q *int) string {
	if q == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%d", *q)
}

// Number renders an optional float without trailing zeros
func Number(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%g", *f)
}

// ImageList joins image urls one per line for the form textarea
func ImageList(urls []string) string {
	return strings.Join(urls, "\n")
}
