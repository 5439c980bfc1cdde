package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"asset-dashboard/internal/models"
)

// REST is a PostgREST client for the assets table of a hosted project.
type REST struct {
	baseURL     string
	apiKey      string
	accessToken string
	client      *http.Client
}

// NewREST creates a client rooted at the project URL, e.g. https://xyz.supabase.co
func NewREST(baseURL, apiKey string, client *http.Client) *REST {
	if client == nil {
		client = http.DefaultClient
	}
	return &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// WithAccessToken returns a copy that authenticates as the signed-in user
// so row level security applies to their session.
func (s *REST) WithAccessToken(token string) *REST {
	cp := *s
	cp.accessToken = token
	return &cp
}

// restError is the PostgREST error body
type restError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (s *REST) FetchAll(ctx context.Context) ([]models.Asset, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "id.asc")

	var assets []models.Asset
	if err := s.do(ctx, "fetch assets", http.MethodGet, q, nil, &assets); err != nil {
		return nil, err
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}

func (s *REST) UpdateFields(ctx context.Context, id models.AssetID, changes models.Changes) (*models.Asset, error) {
	body, err := json.Marshal(changes)
	if err != nil {
		return nil, opError("update asset", err)
	}
	q := url.Values{}
	q.Set("id", "eq."+id.String())

	var rows []models.Asset
	if err := s.do(ctx, "update asset", http.MethodPatch, q, body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *REST) Delete(ctx context.Context, id models.AssetID) error {
	q := url.Values{}
	q.Set("id", "eq."+id.String())
	return s.do(ctx, "delete asset", http.MethodDelete, q, nil, nil)
}

func (s *REST) do(ctx context.Context, op, method string, q url.Values, body []byte, out any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, Table, q.Encode())

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return opError(op, err)
	}
	req.Header.Set("apikey", s.apiKey)
	token := s.accessToken
	if token == "" {
		token = s.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return opError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var re restError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &re) == nil && re.Message != "" {
			msg = re.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return opError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
