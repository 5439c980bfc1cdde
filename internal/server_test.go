package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"asset-dashboard/internal/auth"
	"asset-dashboard/internal/config"
	"asset-dashboard/internal/format"
	"asset-dashboard/internal/models"
	"asset-dashboard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "correct horse battery"
	testSecret    = "test-secret-that-is-long-enough-for-hs256"
)

type memStore struct {
	mu         sync.Mutex
	rows       []models.Asset
	failUpdate error
	failDelete error
	fetches    int
}

func (m *memStore) FetchAll(context.Context) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	out := make([]models.Asset, len(m.rows))
	for i, a := range m.rows {
		out[i] = a.Clone()
	}
	return out, nil
}

func (m *memStore) UpdateFields(_ context.Context, id models.AssetID, changes models.Changes) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return nil, m.failUpdate
	}
	for i, a := range m.rows {
		if a.ID == id {
			updated := changes.Merge(a)
			m.rows[i] = updated
			return &updated, nil
		}
	}
	return nil, nil
}

func (m *memStore) Delete(_ context.Context, id models.AssetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	for i, a := range m.rows {
		if a.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) get(id models.AssetID) (models.Asset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id {
			return a, true
		}
	}
	return models.Asset{}, false
}

func fixtures() []models.Asset {
	return []models.Asset{
		{ID: "1", Name: "Laptop", Code: models.Ptr("L-01"), Department: models.Ptr("Finance"), StaffName: models.Ptr("Ama")},
		{ID: "2", Name: "Office Chair", Department: models.Ptr("IT")},
		{ID: "3", Name: "Monitor", Department: models.Ptr("IT"), Qty: models.Ptr(4)},
	}
}

type harness struct {
	srv      *Server
	store    *memStore
	provider *auth.Local
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	provider, err := auth.NewLocal(adminEmail, hash, auth.NewJWTManager(testSecret, "asset-dashboard", "authenticated", time.Hour))
	require.NoError(t, err)

	ms := &memStore{rows: fixtures()}
	srv, err := NewServer(Deps{
		Config:   &config.Config{SessionKey: strings.Repeat("k", 32), EnableMetrics: true},
		Provider: provider,
		Stores:   func(*auth.Session) store.AssetStore { return ms },
		Now:      func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, store: ms, provider: provider}
}

// browser replays cookies between requests and never follows redirects
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func (h *harness) browser(t *testing.T) *browser {
	return &browser{t: t, h: h.srv.Router, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "text/html")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.h.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, target, form)
}

func (b *browser) login() {
	b.t.Helper()
	w := b.post("/login", url.Values{"email": {adminEmail}, "password": {adminPassword}})
	require.Equal(b.t, http.StatusSeeOther, w.Code, w.Body.String())
	require.Equal(b.t, "/", w.Header().Get("Location"))
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, location, w.Header().Get("Location"))
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(Deps{Config: &config.Config{}})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.browser(t).get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestSignedOutRequests(t *testing.T) {
	h := newHarness(t)

	assertRedirect(t, h.browser(t).get("/"), "/login")

	// API callers get the JSON error shape instead of a redirect
	req := httptest.NewRequest(http.MethodGet, "/export.xlsx", nil)
	w := httptest.NewRecorder()
	h.srv.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body auth.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "MISSING_TOKEN", body.Code)
}

func TestLoginFailureIsShownInline(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)

	w := b.post("/login", url.Values{"email": {adminEmail}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), invalidCredentialsMessage)
	assert.Contains(t, w.Body.String(), `value="admin@example.com"`)
	assert.Empty(t, b.cookies)

	w = b.post("/login", url.Values{"email": {adminEmail}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email and password are required")
}

func TestLoginPageRedirectsWhenSignedIn(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	assert.Equal(t, http.StatusOK, b.get("/login").Code)

	b.login()
	assertRedirect(t, b.get("/login"), "/")
}

func TestBrowseDepartmentsAndListing(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()

	w := b.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Departments")
	assert.Contains(t, body, `href="/departments/Finance"`)
	assert.Contains(t, body, "2 assets")
	assert.Equal(t, 1, h.srv.Registry.Len())

	w = b.get("/departments/IT")
	require.Equal(t, http.StatusOK, w.Code)
	body = w.Body.String()
	assert.Contains(t, body, "<h2>IT</h2>")
	assert.Contains(t, body, "Office Chair")
	assert.NotContains(t, body, "Laptop")
	assert.Contains(t, body, "Back to Departments")

	assertRedirect(t, b.post("/mode", url.Values{"mode": {"list"}}), "/")
	body = b.get("/").Body.String()
	assert.Contains(t, body, "<table>")

	assertRedirect(t, b.post("/search", url.Values{"q": {"monitor"}}), "/")
	body = b.get("/").Body.String()
	assert.Contains(t, body, "Monitor")
	assert.NotContains(t, body, "Office Chair")

	assertRedirect(t, b.post("/all-assets", url.Values{"on": {"true"}}), "/")
	body = b.get("/").Body.String()
	assert.Contains(t, body, "<h2>All Assets</h2>")

	assertRedirect(t, b.post("/departments/back", nil), "/")
	assertRedirect(t, b.post("/search", url.Values{"q": {""}}), "/")
	assertRedirect(t, b.post("/all-assets", url.Values{"on": {"false"}}), "/")
	body = b.get("/").Body.String()
	assert.Contains(t, body, `href="/departments/IT"`)

	// the same dashboard served every request
	assert.Equal(t, 1, h.srv.Registry.Len())
}

func TestClientDroppingCookiesKeepsOneDashboard(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()

	signedIn := map[string]*http.Cookie{}
	for k, v := range b.cookies {
		signedIn[k] = v
	}
	for i := 0; i < 50; i++ {
		b.cookies = map[string]*http.Cookie{}
		for k, v := range signedIn {
			b.cookies[k] = v
		}
		require.Equal(t, http.StatusOK, b.get("/").Code)
	}
	assert.Equal(t, 1, h.srv.Registry.Len())
}

func TestSaveLeavesUntouchedImagesAndText(t *testing.T) {
	h := newHarness(t)
	images := []string{"https://res.cloudinary.com/demo/image/upload/w_200,h_100/laptop.jpg"}
	h.store.mu.Lock()
	h.store.rows[0].ImageURLs = images
	h.store.rows[0].Description = models.Ptr("Docked in room 4\nCharger in drawer")
	h.store.mu.Unlock()

	b := h.browser(t)
	b.login()
	body := b.get("/assets/1").Body.String()
	assert.Contains(t, body, ">"+images[0]+"</textarea>")

	assertRedirect(t, b.post("/assets/1", url.Values{
		"code":        {"L-02"},
		"image_urls":  {strings.ReplaceAll(format.ImageList(images), "\n", "\r\n")},
		"description": {"Docked in room 4\r\nCharger in drawer"},
	}), "/")

	got, _ := h.store.get("1")
	assert.Equal(t, "L-02", *got.Code)
	assert.Equal(t, images, got.ImageURLs)
	assert.Equal(t, "Docked in room 4\nCharger in drawer", *got.Description)
}

func TestBadDashboardInput(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()

	w := b.post("/mode", url.Values{"mode": {"mosaic"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid view mode")

	assert.Equal(t, http.StatusBadRequest, b.post("/all-assets", url.Values{"on": {"maybe"}}).Code)
	assert.Equal(t, http.StatusNotFound, b.get("/assets/99").Code)
}

func TestReloadFetchesAgain(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()
	b.get("/")

	h.store.mu.Lock()
	h.store.rows = append(h.store.rows, models.Asset{ID: "4", Name: "Projector", Department: models.Ptr("AV")})
	h.store.mu.Unlock()

	assertRedirect(t, b.post("/reload", nil), "/")
	assert.Contains(t, b.get("/").Body.String(), `href="/departments/AV"`)
}

func TestSaveAsset(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()

	w := b.get("/assets/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/assets/1"`)
	assert.Contains(t, w.Body.String(), `value="Ama"`)

	assertRedirect(t, b.post("/assets/1", url.Values{"staff_name": {"Kofi"}}), "/")
	got, _ := h.store.get("1")
	assert.Equal(t, "Kofi", *got.StaffName)

	body := b.get("/").Body.String()
	assert.Contains(t, body, "Asset updated")
	assert.Contains(t, body, `value="Kofi"`)

	// resubmitting the same values saves nothing
	assertRedirect(t, b.post("/assets/1", url.Values{"staff_name": {"Kofi"}}), "/")
	assert.Contains(t, b.get("/").Body.String(), "Nothing to save")

	assertRedirect(t, b.post("/assets/1/close", nil), "/")
	assert.NotContains(t, b.get("/").Body.String(), `action="/assets/1"`)
}

func TestSaveAssetFailures(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()

	w := b.post("/assets/3", url.Values{"qty": {"four"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Quantity must be a whole number")

	h.store.failUpdate = &store.Error{Op: "update asset", Message: "permission denied for table assets"}
	w = b.post("/assets/3", url.Values{"qty": {"5"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "failed to save")
	assert.Contains(t, w.Body.String(), "permission denied")

	got, _ := h.store.get("3")
	assert.Equal(t, 4, *got.Qty)
}

func TestDeleteAsset(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()

	w := b.get("/assets/2/delete")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Are you sure you want to delete this asset?")

	assertRedirect(t, b.post("/assets/2/delete", url.Values{"confirm": {"no"}}), "/")
	_, ok := h.store.get("2")
	assert.True(t, ok)
	assert.Contains(t, b.get("/").Body.String(), `action="/assets/2"`)

	h.store.failDelete = errors.New("row is locked")
	w = b.post("/assets/2/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "failed to delete: row is locked")

	h.store.failDelete = nil
	assertRedirect(t, b.post("/assets/2/delete", url.Values{"confirm": {"yes"}}), "/")
	_, ok = h.store.get("2")
	assert.False(t, ok)

	body := b.get("/").Body.String()
	assert.Contains(t, body, "Asset deleted")
	assert.NotContains(t, body, `action="/assets/2"`)
	assert.Contains(t, body, "1 asset<")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()
	b.get("/")
	require.Equal(t, 1, h.srv.Registry.Len())

	stale := map[string]*http.Cookie{}
	for k, v := range b.cookies {
		stale[k] = v
	}

	assertRedirect(t, b.post("/logout", nil), "/login")
	assert.Zero(t, h.srv.Registry.Len())
	assertRedirect(t, b.get("/"), "/login")

	// a replayed cookie from before sign out no longer works
	b.cookies = stale
	assertRedirect(t, b.get("/"), "/login")
	assert.Zero(t, h.srv.Registry.Len())
}

func TestExportFollowsListing(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()

	w := b.get("/export.xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-Export-Rows"))
	assert.Equal(t, `attachment; filename="assets-20240601.xlsx"`, w.Header().Get("Content-Disposition"))

	b.get("/departments/IT")
	assert.Equal(t, "2", b.get("/export.xlsx").Header().Get("X-Export-Rows"))
}

func TestBearerExportUsesThrowawayDashboard(t *testing.T) {
	h := newHarness(t)
	session, err := h.provider.SignInWithPassword(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/export.xlsx", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	w := httptest.NewRecorder()
	h.srv.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-Export-Rows"))
	assert.Zero(t, h.srv.Registry.Len())
}

func TestMetricsCountCollectionLoads(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login()
	b.get("/")
	b.post("/assets/1", url.Values{"staff_name": {"Esi"}})

	body := b.get("/metrics").Body.String()
	assert.Contains(t, body, `asset_loads_total{result="ok"} 1`)
	assert.Contains(t, body, `asset_mutations_total{op="update",result="ok"} 1`)
	assert.Contains(t, body, `path="/assets/{id}"`)
}
