package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPProvider talks to a hosted auth service over its REST admin API.
type HTTPProvider struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewHTTPProvider constructs the provider. The http.Client is shared for the
// process lifetime; pass nil to use a client with a sane default timeout.
func NewHTTPProvider(baseURL, serviceKey string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     client,
	}
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	EmailConfirmedAt string `json:"email_confirmed_at"`
}

func (u userResponse) toIdentity() Identity {
	return Identity{ID: u.ID, Email: u.Email, EmailConfirmed: u.EmailConfirmedAt != ""}
}

// Authenticate performs a password grant.
func (p *HTTPProvider) Authenticate(ctx context.Context, email, password string) (Identity, string, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := p.do(ctx, http.MethodPost, "/token?grant_type=password", p.serviceKey, body)
	if err != nil {
		return Identity{}, "", err
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK:
		var tr tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return Identity{}, "", fmt.Errorf("identity: decode token response: %w", err)
		}
		return tr.User.toIdentity(), tr.AccessToken, nil
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized:
		return Identity{}, "", ErrInvalidCredentials
	default:
		return Identity{}, "", fmt.Errorf("%w: token endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}
}

// ValidateSession verifies the access token with the provider.
func (p *HTTPProvider) ValidateSession(ctx context.Context, accessToken string) (Identity, error) {
	if accessToken == "" {
		return Identity{}, ErrInvalidSession
	}
	resp, err := p.do(ctx, http.MethodGet, "/user", accessToken, nil)
	if err != nil {
		return Identity{}, err
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK:
		var ur userResponse
		if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
			return Identity{}, fmt.Errorf("identity: decode user response: %w", err)
		}
		return ur.toIdentity(), nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrInvalidSession
	default:
		return Identity{}, fmt.Errorf("%w: user endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}
}

// RevokeSession logs the access token out.
func (p *HTTPProvider) RevokeSession(ctx context.Context, accessToken string) error {
	resp, err := p.do(ctx, http.MethodPost, "/logout", accessToken, nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: logout returned %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// CreateAccount registers an account through the admin endpoint.
func (p *HTTPProvider) CreateAccount(ctx context.Context, email, password string, confirmed bool) (Identity, error) {
	body := map[string]any{"email": email, "password": password, "email_confirm": confirmed}
	resp, err := p.do(ctx, http.MethodPost, "/admin/users", p.serviceKey, body)
	if err != nil {
		return Identity{}, err
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated:
		var ur userResponse
		if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
			return Identity{}, fmt.Errorf("identity: decode admin create response: %w", err)
		}
		return ur.toIdentity(), nil
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity:
		return Identity{}, ErrDuplicateAccount
	default:
		return Identity{}, fmt.Errorf("%w: admin create returned %d", ErrUnavailable, resp.StatusCode)
	}
}

// DeleteAccount removes an account through the admin endpoint.
func (p *HTTPProvider) DeleteAccount(ctx context.Context, id string) error {
	resp, err := p.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), p.serviceKey, nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: admin delete returned %d", ErrUnavailable, resp.StatusCode)
	}
}

func (p *HTTPProvider) do(ctx context.Context, method, path, bearer string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

var _ Provider = (*HTTPProvider)(nil)
