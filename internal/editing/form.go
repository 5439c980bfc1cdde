package editing

import (
	"fmt"
	"html"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"asset-dashboard/internal/format"
	"asset-dashboard/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// FieldError reports a form value that could not be parsed
type FieldError struct {
	Column string
	Label  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Label, e.Reason)
}

// ApplyForm builds the edited copy of original from the detail form.
// Form keys are column names. Text input that differs from the stored value
// is stripped of markup.
func ApplyForm(original models.Asset, form url.Values) (models.Asset, error) {
	edited := original.Clone()
	for _, f := range models.EditableFields {
		if f.Kind != models.KindBool {
			if _, present := form[f.Column]; !present {
				continue
			}
		}
		raw := form.Get(f.Column)

		var v any
		switch f.Kind {
		case models.KindText:
			v = cleanText(raw, f.Get(&original))
		case models.KindDate:
			s := strings.TrimSpace(raw)
			if s != "" {
				if _, err := time.Parse(format.InputDateLayout, s); err != nil {
					return original, &FieldError{Column: f.Column, Label: f.Label, Reason: "must be a date (YYYY-MM-DD)"}
				}
				v = s
				// a stored timestamp is shown as its date; keep it when the date is unchanged
				if stored, ok := f.Get(&original).(string); ok {
					if t, ok := format.ParseDate(stored); ok && t.Format(format.InputDateLayout) == s {
						v = stored
					}
				}
			}
		case models.KindInt:
			s := strings.TrimSpace(raw)
			if s != "" {
				n, err := strconv.Atoi(s)
				if err != nil {
					return original, &FieldError{Column: f.Column, Label: f.Label, Reason: "must be a whole number"}
				}
				if n < 0 {
					return original, &FieldError{Column: f.Column, Label: f.Label, Reason: "cannot be negative"}
				}
				v = n
			}
		case models.KindFloat:
			s := strings.TrimSpace(raw)
			if s != "" {
				n, err := strconv.ParseFloat(s, 64)
				if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
					return original, &FieldError{Column: f.Column, Label: f.Label, Reason: "must be a number"}
				}
				v = n
			}
		case models.KindBool:
			v = checked(raw)
		case models.KindList:
			v = splitList(raw)
		}
		f.Set(&edited, v)
	}
	return edited, nil
}

// cleanText normalizes textarea line endings and strips markup from text
// that differs from the stored value
func cleanText(raw string, stored any) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	if s, ok := stored.(string); ok && s == raw {
		return raw
	}
	return html.UnescapeString(strict.Sanitize(raw))
}

func checked(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// splitList parses one entry per line, dropping blank lines. Entries may
// contain commas.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
