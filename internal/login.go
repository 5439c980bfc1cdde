package internal

import (
	"errors"
	"net/http"
	"strings"

	"asset-dashboard/internal/auth"
	"asset-dashboard/internal/templates"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const invalidCredentialsMessage = "Invalid login credentials"

func (s *Server) showLogin(w http.ResponseWriter, r *http.Request) {
	if tok := s.cookieToken(r); tok != "" {
		if _, err := s.Provider.CurrentSession(r.Context(), tok); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	s.render(w, http.StatusOK, templates.Login, templates.LoginPage{})
}

// login signs in with email and password. Failures are shown inline on the
// form with the entered email kept.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, templates.Login, templates.LoginPage{Error: "Invalid form submission"})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	page := templates.LoginPage{Email: email}

	if email == "" || password == "" {
		page.Error = "Email and password are required"
		s.render(w, http.StatusBadRequest, templates.Login, page)
		return
	}

	session, err := s.Provider.SignInWithPassword(r.Context(), email, password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		page.Error = invalidCredentialsMessage
		s.render(w, http.StatusUnauthorized, templates.Login, page)
		return
	case err != nil:
		s.log.Warn("sign in failed", zap.String("email", email), zap.Error(err))
		page.Error = err.Error()
		s.render(w, http.StatusBadGateway, templates.Login, page)
		return
	}

	cs := s.browserSession(r)
	if key, ok := cs.Values[valDashboard].(string); ok {
		s.Registry.Unmount(key)
	}
	cs.Values[valAccessToken] = session.AccessToken
	cs.Values[valEmail] = session.Email
	delete(cs.Values, valDashboard)
	s.saveSession(w, r, cs)

	s.log.Info("signed in", zap.String("email", session.Email))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// logout ends the provider session, whose sign-out event unmounts the
// dashboard, and clears the cookie.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	cs := s.browserSession(r)
	if tok, _ := cs.Values[valAccessToken].(string); tok != "" {
		if session, err := s.Provider.CurrentSession(r.Context(), tok); err == nil {
			if err := s.Provider.SignOut(r.Context(), session); err != nil {
				s.log.Warn("sign out failed", zap.String("email", session.Email), zap.Error(err))
			}
		}
	}
	s.forget(w, r, cs)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// forget drops the browser's dashboard and credentials
func (s *Server) forget(w http.ResponseWriter, r *http.Request, cs *sessions.Session) {
	if key, ok := cs.Values[valDashboard].(string); ok {
		s.Registry.Unmount(key)
	}
	delete(cs.Values, valAccessToken)
	delete(cs.Values, valEmail)
	delete(cs.Values, valDashboard)
	s.saveSession(w, r, cs)
}
