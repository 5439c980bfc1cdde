package internal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"asset-dashboard/internal/auth"
	"asset-dashboard/internal/config"
	"asset-dashboard/internal/dashboard"
	"asset-dashboard/internal/handlers"
	"asset-dashboard/internal/models"
	"asset-dashboard/internal/templates"
	"asset-dashboard/pkg/exporter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Deps are the collaborators a Server is built from
type Deps struct {
	Config   *config.Config
	Provider auth.Provider
	Stores   dashboard.StoreFactory
	Log      *zap.Logger
	// Layout overrides the default export columns when it has any
	Layout exporter.Layout
	// Now is the page clock, defaults to time.Now
	Now func() time.Time
}

type Server struct {
	Router   *chi.Mux
	Provider auth.Provider
	Registry *dashboard.Registry
	Sessions *sessions.CookieStore
	Metrics  *Metrics

	pages     *templates.Renderer
	exports   *handlers.ExportsHandler
	log       *zap.Logger
	stopWatch func()
}

func NewServer(d Deps) (*Server, error) {
	if d.Config == nil || d.Provider == nil || d.Stores == nil {
		return nil, errors.New("server needs a config, an auth provider and a store factory")
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	pages, err := templates.New(d.Now)
	if err != nil {
		return nil, err
	}

	// Initialize metrics
	metrics := NewMetrics()

	s := &Server{
		Router:   chi.NewRouter(),
		Provider: d.Provider,
		Registry: dashboard.NewRegistry(d.Stores, metrics, log,
			dashboard.WithIdleTimeout(d.Config.DashboardIdle),
			dashboard.WithClock(d.Now)),
		Sessions: newCookieStore(d.Config.SessionKey, d.Config.CookieSecure, log),
		Metrics:  metrics,
		pages:    pages,
		log:      log,
	}
	s.exports = handlers.NewExportsHandler(s.exportListing, log)
	if len(d.Layout.Columns) > 0 {
		s.exports.Layout = d.Layout
	}
	if d.Now != nil {
		s.exports.Now = d.Now
	}
	s.stopWatch = s.Registry.Watch(d.Provider)

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(RequestLogger(log))
	s.Router.Use(middleware.Recoverer)

	// Mount metrics if enabled
	if d.Config.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Public routes
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/login", s.showLogin)
	s.Router.Post("/login", s.login)
	s.Router.Post("/logout", s.logout)

	// Everything else needs a signed-in session and a mounted dashboard
	s.Router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(s.Provider, auth.FirstToken(s.cookieToken, auth.BearerToken), s.unauthorized))
		r.Use(s.withDashboard)
		s.mountDashboardRoutes(r)
	})

	return s, nil
}

// Close stops watching session events and discards every mounted dashboard
func (s *Server) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.Registry.UnmountAll()
}

func (s *Server) mountDashboardRoutes(r chi.Router) {
	r.Get("/", s.showDashboard)
	r.Post("/search", s.search)
	r.Post("/mode", s.setMode)
	r.Post("/all-assets", s.setAllAssets)
	r.Get("/departments/{dept}", s.selectDepartment)
	r.Post("/departments/back", s.backToDepartments)
	r.Post("/reload", s.reload)

	r.Get("/assets/{id}", s.openAsset)
	r.Post("/assets/{id}", s.saveAsset)
	r.Post("/assets/{id}/close", s.closeAsset)
	r.Get("/assets/{id}/delete", s.confirmDelete)
	r.Post("/assets/{id}/delete", s.deleteAsset)

	r.Get("/export.xlsx", s.exports.DownloadXLSX)
}

// unauthorized sends browsers to the login page and API callers a JSON error
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	if r.Header.Get("Authorization") != "" || !strings.Contains(r.Header.Get("Accept"), "text/html") {
		auth.JSONUnauthorized(w, r, err)
		return
	}
	if sess := s.browserSession(r); sess.Values[valAccessToken] != nil {
		s.forget(w, r, sess)
	}
	auth.RedirectToLogin("/login")(w, r, err)
}

type dashboardKey struct{}

func dashboardFrom(ctx context.Context) *dashboard.Dashboard {
	d, _ := ctx.Value(dashboardKey{}).(*dashboard.Dashboard)
	return d
}

// withDashboard attaches the dashboard mounted for the browser session,
// mounting a fresh one when the cookie names none that belongs to it.
// Bearer callers get a dashboard that lives for the request only.
func (s *Server) withDashboard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := auth.SessionFromContext(r.Context())
		cs := s.browserSession(r)

		if tok, _ := cs.Values[valAccessToken].(string); tok != session.AccessToken {
			d, release := s.Registry.Temporary(r.Context(), session)
			defer release()
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), dashboardKey{}, d)))
			return
		}

		key, _ := cs.Values[valDashboard].(string)
		d, ok := s.Registry.Get(key, session)
		if !ok {
			key, d = s.Registry.Mount(r.Context(), session)
			cs.Values[valDashboard] = key
			s.saveSession(w, r, cs)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), dashboardKey{}, d)))
	})
}

// exportListing is what the dashboard currently lists. The department
// overview exports every asset matching the search.
func (s *Server) exportListing(r *http.Request) ([]models.Asset, error) {
	d := dashboardFrom(r.Context())
	v := d.View()
	if v.LoadError != "" {
		return nil, errors.New(v.LoadError)
	}
	if v.ShowDepartments {
		return d.Model().Filtered(v.Search), nil
	}
	return v.Assets, nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	if err := s.pages.Render(w, status, name, data); err != nil {
		s.log.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, status, templates.Error, templates.ErrorPage{
		User:    userEmail(r),
		Status:  status,
		Message: msg,
	})
}

func userEmail(r *http.Request) string {
	if sess := auth.SessionFromContext(r.Context()); sess != nil {
		return sess.Email
	}
	return ""
}
