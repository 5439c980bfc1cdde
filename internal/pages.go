package internal

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"asset-dashboard/internal/dashboard"
	"asset-dashboard/internal/editing"
	"asset-dashboard/internal/models"
	"asset-dashboard/internal/templates"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int) {
	d := dashboardFrom(r.Context())
	s.render(w, status, templates.Dashboard, templates.DashboardPage{
		User:   userEmail(r),
		View:   d.View(),
		Fields: models.EditableFields,
	})
}

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	dashboardFrom(r.Context()).SetSearch(r.PostFormValue("q"))
	redirectHome(w, r)
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	if err := dashboardFrom(r.Context()).SetViewMode(r.PostFormValue("mode")); err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	redirectHome(w, r)
}

func (s *Server) setAllAssets(w http.ResponseWriter, r *http.Request) {
	on, err := strconv.ParseBool(r.PostFormValue("on"))
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "on must be true or false")
		return
	}
	dashboardFrom(r.Context()).SetAllAssets(on)
	redirectHome(w, r)
}

func (s *Server) selectDepartment(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "dept")
	// chi matches on the raw path when it differs from the decoded one
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(label); err == nil {
			label = unescaped
		}
	}
	dashboardFrom(r.Context()).SelectDepartment(label)
	s.renderDashboard(w, r, http.StatusOK)
}

func (s *Server) backToDepartments(w http.ResponseWriter, r *http.Request) {
	dashboardFrom(r.Context()).BackToDepartments()
	redirectHome(w, r)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if err := dashboardFrom(r.Context()).Reload(r.Context()); err != nil {
		s.log.Warn("reload failed", zap.Error(err))
	}
	redirectHome(w, r)
}

func assetID(r *http.Request) models.AssetID {
	return models.AssetID(chi.URLParam(r, "id"))
}

// ensureOpen opens the asset named in the path unless it already is.
// It writes a 404 page and returns false when the asset is unknown.
func (s *Server) ensureOpen(w http.ResponseWriter, r *http.Request, d *dashboard.Dashboard) bool {
	id := assetID(r)
	if open, err := d.OpenAssetRow(); err == nil && open.ID == id {
		return true
	}
	if err := d.OpenAsset(id); err != nil {
		s.renderError(w, r, http.StatusNotFound, err.Error())
		return false
	}
	return true
}

func (s *Server) openAsset(w http.ResponseWriter, r *http.Request) {
	d := dashboardFrom(r.Context())
	if err := d.OpenAsset(assetID(r)); err != nil {
		s.renderError(w, r, http.StatusNotFound, err.Error())
		return
	}
	s.renderDashboard(w, r, http.StatusOK)
}

func (s *Server) closeAsset(w http.ResponseWriter, r *http.Request) {
	dashboardFrom(r.Context()).CloseAsset()
	redirectHome(w, r)
}

// saveAsset saves the detail form. A failed save re-renders the form with
// the message and the stored values.
func (s *Server) saveAsset(w http.ResponseWriter, r *http.Request) {
	d := dashboardFrom(r.Context())
	if !s.ensureOpen(w, r, d) {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form submission")
		return
	}

	outcome, err := d.SaveForm(r.Context(), r.PostForm)
	if err != nil {
		status := http.StatusBadGateway
		var fe *editing.FieldError
		if errors.As(err, &fe) {
			status = http.StatusUnprocessableEntity
		}
		s.renderDashboard(w, r, status)
		return
	}
	s.log.Debug("asset saved", zap.String("id", assetID(r).String()), zap.Stringer("outcome", outcome))
	redirectHome(w, r)
}

func (s *Server) confirmDelete(w http.ResponseWriter, r *http.Request) {
	d := dashboardFrom(r.Context())
	if !s.ensureOpen(w, r, d) {
		return
	}
	a, err := d.OpenAssetRow()
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, err.Error())
		return
	}
	s.render(w, http.StatusOK, templates.ConfirmDelete, templates.ConfirmPage{
		User:   userEmail(r),
		Asset:  a,
		Prompt: editing.DeletePrompt,
	})
}

// deleteAsset removes the open asset only when the form carries confirm=yes
func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) {
	d := dashboardFrom(r.Context())
	if !s.ensureOpen(w, r, d) {
		return
	}
	confirmed := r.PostFormValue("confirm") == "yes"
	outcome, err := d.Delete(r.Context(), editing.ConfirmFunc(func(string) bool { return confirmed }))
	if err != nil {
		s.renderDashboard(w, r, http.StatusBadGateway)
		return
	}
	s.log.Debug("asset delete finished", zap.String("id", assetID(r).String()), zap.Stringer("outcome", outcome))
	redirectHome(w, r)
}
