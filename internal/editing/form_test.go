package editing

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"asset-dashboard/internal/format"
	"asset-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullForm is the detail form as a browser submits it untouched: textarea
// lines come back CRLF separated
func fullForm(a models.Asset) url.Values {
	v := url.Values{}
	for _, f := range models.EditableFields {
		switch val := f.Get(&a).(type) {
		case nil:
			if f.Kind != models.KindBool {
				v.Set(f.Column, "")
			}
		case string:
			v.Set(f.Column, strings.ReplaceAll(val, "\n", "\r\n"))
		case bool:
			if val {
				v.Set(f.Column, "on")
			}
		case int:
			v.Set(f.Column, strconv.Itoa(val))
		case float64:
			v.Set(f.Column, strconv.FormatFloat(val, 'f', -1, 64))
		case []string:
			v.Set(f.Column, strings.ReplaceAll(format.ImageList(val), "\n", "\r\n"))
		}
	}
	return v
}

func TestApplyFormUntouchedHasNoChanges(t *testing.T) {
	original := seedRows()[0]
	original.ImageURLs = []string{"a.png", "b.png"}
	original.NeedRepair = models.Ptr(true)
	original.Description = models.Ptr("<b>legacy</b> markup")

	edited, err := ApplyForm(original, fullForm(original))
	require.NoError(t, err)
	assert.Empty(t, Diff(original, edited))
}

func TestApplyFormParsesValues(t *testing.T) {
	original := seedRows()[1]
	form := url.Values{
		"department":    {"IT"},
		"staff_name":    {"  Yaw "},
		"qty":           {"3"},
		"unit_cost":     {"99.95"},
		"purchase_date": {"2022-01-31"},
		"need_repair":   {"on"},
		"image_urls":    {"a.png\r\n \r\nb.png\r\n"},
		"description":   {"<script>x()</script>Screen & stand"},
	}

	edited, err := ApplyForm(original, form)
	require.NoError(t, err)

	changes := Diff(original, edited)
	assert.Equal(t, models.Changes{
		"staff_name":    "  Yaw ",
		"qty":           3,
		"unit_cost":     99.95,
		"purchase_date": "2022-01-31",
		"need_repair":   true,
		"image_urls":    []string{"a.png", "b.png"},
		"description":   "Screen & stand",
	}, changes)
	assert.Equal(t, "Office Chair", edited.Name)
}

func TestApplyFormClearsBlankValues(t *testing.T) {
	original := seedRows()[0]
	form := fullForm(original)
	form.Set("code", "")
	form.Set("qty", "")

	edited, err := ApplyForm(original, form)
	require.NoError(t, err)
	assert.Equal(t, models.Changes{"code": nil, "qty": nil}, Diff(original, edited))
}

func TestApplyFormRejectsBadInput(t *testing.T) {
	cases := map[string]url.Values{
		"qty":           {"qty": {"two"}},
		"unit_cost":     {"unit_cost": {"1,200"}},
		"depreciation":  {"depreciation": {"NaN"}},
		"purchase_date": {"purchase_date": {"14/03/2021"}},
	}
	for col, form := range cases {
		t.Run(col, func(t *testing.T) {
			_, err := ApplyForm(seedRows()[0], form)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, col, fe.Column)
		})
	}

	_, err := ApplyForm(seedRows()[0], url.Values{"qty": {"-1"}})
	assert.EqualError(t, err, "Quantity cannot be negative")

	for _, raw := range []string{"Inf", "-Inf", "+Infinity", "nan"} {
		_, err := ApplyForm(seedRows()[0], url.Values{"unit_cost": {raw}})
		var fe *FieldError
		require.True(t, errors.As(err, &fe), raw)
		assert.Equal(t, "unit_cost", fe.Column)
	}
}

func TestApplyFormKeepsImageURLsWithCommas(t *testing.T) {
	original := seedRows()[0]
	original.ImageURLs = []string{
		"https://res.cloudinary.com/demo/image/upload/w_200,h_100/laptop.jpg",
		"https://cdn.example.com/a.png",
	}
	form := fullForm(original)
	form.Set("code", "L-02")

	edited, err := ApplyForm(original, form)
	require.NoError(t, err)
	assert.Equal(t, models.Changes{"code": "L-02"}, Diff(original, edited))
	assert.Equal(t, original.ImageURLs, edited.ImageURLs)
}

func TestApplyFormIgnoresTextareaLineEndings(t *testing.T) {
	original := seedRows()[0]
	original.Description = models.Ptr("Docked in room 4\nCharger in drawer")

	edited, err := ApplyForm(original, url.Values{"description": {"Docked in room 4\r\nCharger in drawer"}})
	require.NoError(t, err)
	assert.Empty(t, Diff(original, edited))

	edited, err = ApplyForm(original, url.Values{"description": {"Docked in room 5\r\nCharger in drawer"}})
	require.NoError(t, err)
	assert.Equal(t, models.Changes{"description": "Docked in room 5\nCharger in drawer"}, Diff(original, edited))
}

func TestApplyFormKeepsStoredTimestampForSameDate(t *testing.T) {
	original := seedRows()[0]
	original.PurchaseDate = models.Ptr("2020-01-01T00:00:00Z")

	edited, err := ApplyForm(original, url.Values{"purchase_date": {"2020-01-01"}})
	require.NoError(t, err)
	assert.Empty(t, Diff(original, edited))

	edited, err = ApplyForm(original, url.Values{"purchase_date": {"2020-01-02"}})
	require.NoError(t, err)
	assert.Equal(t, models.Changes{"purchase_date": "2020-01-02"}, Diff(original, edited))
}
