package templates

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asset-dashboard/internal/collection"
	"asset-dashboard/internal/dashboard"
	"asset-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) })
	require.NoError(t, err)
	return r
}

func laptop() models.Asset {
	return models.Asset{
		ID: "7", Name: "Laptop", Code: models.Ptr("L-01"), Department: models.Ptr("Finance"),
		PurchaseDate: models.Ptr("2020-01-01"), Depreciation: models.Ptr(140.0),
		Qty: models.Ptr(2), UnitCost: models.Ptr(1200.5), NeedRepair: models.Ptr(true),
		ImageURLs: []string{"a.png", "b.png"},
	}
}

func TestLoginPageShowsError(t *testing.T) {
	w := httptest.NewRecorder()
	err := renderer(t).Render(w, http.StatusUnauthorized, Login, LoginPage{Email: "a@b.c", Error: "Invalid login credentials"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "Invalid login credentials")
	assert.Contains(t, body, `value="a@b.c"`)
	assert.NotContains(t, body, "Sign out")
}

func TestDashboardDepartmentCards(t *testing.T) {
	page := DashboardPage{
		User: "admin@example.com",
		View: dashboard.View{
			Loaded: true, Mode: dashboard.Grid, ShowDepartments: true,
			Departments: []collection.DepartmentCount{{Department: "Lab & Stores", Count: 1}, {Department: "IT", Count: 3}},
		},
	}
	w := httptest.NewRecorder()
	require.NoError(t, renderer(t).Render(w, http.StatusOK, Dashboard, page))

	body := w.Body.String()
	assert.Contains(t, body, "Sign out")
	assert.Contains(t, body, `href="/departments/Lab%20&amp;%20Stores"`)
	assert.Contains(t, body, "1 asset<")
	assert.Contains(t, body, "3 assets")
}

func TestDashboardListingModes(t *testing.T) {
	view := dashboard.View{
		Loaded: true, Mode: dashboard.List, Title: "Finance", ShowBack: true, Department: "Finance",
		Assets: []models.Asset{laptop(), {ID: "8"}},
	}
	w := httptest.NewRecorder()
	require.NoError(t, renderer(t).Render(w, http.StatusOK, Dashboard, DashboardPage{View: view}))
	body := w.Body.String()
	assert.Contains(t, body, "<h2>Finance</h2>")
	assert.Contains(t, body, "Back to Departments")
	assert.Contains(t, body, "4 yrs")
	assert.Contains(t, body, "width: 100%")
	assert.Contains(t, body, "Unnamed")

	view.Mode = dashboard.Grid
	w = httptest.NewRecorder()
	require.NoError(t, renderer(t).Render(w, http.StatusOK, Dashboard, DashboardPage{View: view}))
	body = w.Body.String()
	assert.Contains(t, body, `src="a.png"`)
	assert.Contains(t, body, "Jan 1, 2020")
	assert.Contains(t, body, "placeholder")
}

func TestDashboardLoadStates(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, renderer(t).Render(w, http.StatusOK, Dashboard, DashboardPage{View: dashboard.View{LoadError: "permission denied"}}))
	assert.Contains(t, w.Body.String(), "Error: permission denied")

	w = httptest.NewRecorder()
	require.NoError(t, renderer(t).Render(w, http.StatusOK, Dashboard, DashboardPage{View: dashboard.View{Loading: true}}))
	assert.Contains(t, w.Body.String(), "Loading assets...")
}

func TestDetailFormValues(t *testing.T) {
	a := laptop()
	view := dashboard.View{Loaded: true, Mode: dashboard.Grid, ShowDepartments: true, Open: &a, DetailError: "failed to save: denied"}
	w := httptest.NewRecorder()
	require.NoError(t, renderer(t).Render(w, http.StatusUnprocessableEntity, Dashboard, DashboardPage{View: view, Fields: models.EditableFields}))

	body := w.Body.String()
	assert.Contains(t, body, `action="/assets/7"`)
	assert.Contains(t, body, "failed to save: denied")
	assert.Contains(t, body, `name="qty" type="number" value="2"`)
	assert.Contains(t, body, `name="unit_cost" type="number" value="1200.5"`)
	assert.Contains(t, body, `name="purchase_date" type="date" value="2020-01-01"`)
	assert.Contains(t, body, "name=\"image_urls\" rows=\"3\" placeholder=\"One per line\">a.png\nb.png</textarea>")
	assert.Contains(t, body, `name="need_repair" type="checkbox" checked`)
}

func TestConfirmAndErrorPages(t *testing.T) {
	r := renderer(t)
	w := httptest.NewRecorder()
	require.NoError(t, r.Render(w, http.StatusOK, ConfirmDelete, ConfirmPage{Asset: laptop(), Prompt: "Are you sure?"}))
	assert.Contains(t, w.Body.String(), `action="/assets/7/delete"`)
	assert.Contains(t, w.Body.String(), `value="yes"`)

	w = httptest.NewRecorder()
	require.NoError(t, r.Render(w, http.StatusNotFound, Error, ErrorPage{Status: http.StatusNotFound, Message: "asset not found"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "404 Not Found")
}

func TestRenderUnknownPage(t *testing.T) {
	w := httptest.NewRecorder()
	assert.Error(t, renderer(t).Render(w, http.StatusOK, "missing", nil))
	assert.Empty(t, w.Body.String())
}
