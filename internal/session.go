package internal

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	sessionName = "asset_dashboard"

	valAccessToken = "access_token"
	valEmail       = "email"
	valDashboard   = "dashboard"
)

// newCookieStore builds the browser session store. Without a configured key
// a random one is generated, so sessions do not survive a restart.
func newCookieStore(key string, secure bool, log *zap.Logger) *sessions.CookieStore {
	secret := []byte(key)
	if key == "" {
		secret = securecookie.GenerateRandomKey(32)
		log.Warn("SESSION_KEY not set, using a random key; sessions reset on restart")
	}

	store := sessions.NewCookieStore(secret)
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
	return store
}

// browserSession returns the cookie session. A cookie that fails to decode
// yields a fresh session, which is what a signed-out browser sees.
func (s *Server) browserSession(r *http.Request) *sessions.Session {
	sess, err := s.Sessions.Get(r, sessionName)
	if err != nil {
		s.log.Debug("discarding unreadable session cookie", zap.Error(err))
	}
	return sess
}

// cookieToken is the auth.TokenSource for browser requests
func (s *Server) cookieToken(r *http.Request) string {
	tok, _ := s.browserSession(r).Values[valAccessToken].(string)
	return tok
}

func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	if err := sess.Save(r, w); err != nil {
		s.log.Error("failed to save session cookie", zap.Error(err))
	}
}
