package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GoTrue signs in against a hosted GoTrue session service
type GoTrue struct {
	notifier

	baseURL string
	apiKey  string
	client  *http.Client
	// verifier checks access tokens locally; nil means ask the service
	verifier *JWTManager
}

// NewGoTrue creates a client for the service at baseURL (the project URL,
// without /auth/v1). jwtSecret may be empty.
func NewGoTrue(baseURL, apiKey, jwtSecret string, client *http.Client) *GoTrue {
	if client == nil {
		client = http.DefaultClient
	}
	g := &GoTrue{
		baseURL: strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:  apiKey,
		client:  client,
	}
	if jwtSecret != "" {
		g.verifier = NewJWTManager(jwtSecret, "", "authenticated", 0)
	}
	return g
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// gotrueError covers both the legacy OAuth style and the newer error shape
type gotrueError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	ErrorCode   string `json:"error_code"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Description, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (e gotrueError) badCredentials() bool {
	return e.Error == "invalid_grant" || e.ErrorCode == "invalid_credentials"
}

// SignInWithPassword exchanges an email and password for a session
func (g *GoTrue) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var tr tokenResponse
	if err := g.do(req, "", &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("sign in: empty access token")
	}

	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		UserID:       tr.User.ID,
		Email:        tr.User.Email,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	g.emit(Event{Kind: SignedIn, Session: s})
	return s, nil
}

// SignOut revokes the session on the service
func (g *GoTrue) SignOut(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNoSession
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	if err := g.do(req, s.AccessToken, nil); err != nil {
		return err
	}
	g.emit(Event{Kind: SignedOut, Session: s})
	return nil
}

// CurrentSession verifies accessToken with the project secret when one is
// configured, otherwise by asking the service for the token's user.
func (g *GoTrue) CurrentSession(ctx context.Context, accessToken string) (*Session, error) {
	if err := validateTokenFormat(accessToken); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	if g.verifier != nil {
		claims, err := g.verifier.ValidateToken(accessToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
		}
		return claims.session(accessToken), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := g.do(req, accessToken, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return &Session{AccessToken: accessToken, UserID: user.ID, Email: user.Email}, nil
}

func (g *GoTrue) do(req *http.Request, bearer string, out any) error {
	req.Header.Set("apikey", g.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var ge gotrueError
		_ = json.Unmarshal(data, &ge)
		if ge.badCredentials() {
			return ErrInvalidCredentials
		}
		if msg := ge.text(); msg != "" {
			return fmt.Errorf("auth service: %s", msg)
		}
		return fmt.Errorf("auth service: %s", resp.Status)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}
