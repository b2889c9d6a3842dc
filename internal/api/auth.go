package api

import (
	"context"
	"net/http"
	"net/url"

	"dymgr/internal/dispatch"
)

// AuthService wraps the /auth endpoints.
type AuthService struct {
	d Dispatcher
}

// Token exchanges credentials for a bearer token. The backend expects an
// OAuth2 password form, so the payload is URL-encoded.
func (s *AuthService) Token(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	var out TokenResponse
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodPost, Path: "/auth/token", Form: form}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. It does not authenticate.
func (s *AuthService) Register(ctx context.Context, reg Registration) (*User, error) {
	var out User
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodPost, Path: "/auth/register", JSON: reg}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile of the bearer token's owner.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	var out User
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodGet, Path: "/auth/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DouyinAuthURL returns the Douyin OAuth authorization URL.
func (s *AuthService) DouyinAuthURL(ctx context.Context) (*DouyinAuth, error) {
	var out DouyinAuth
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodGet, Path: "/auth/douyin/auth"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DouyinCallback hands the OAuth code back to the backend.
func (s *AuthService) DouyinCallback(ctx context.Context, code string) (*DouyinLink, error) {
	var out DouyinLink
	req := dispatch.Request{
		Method: http.MethodGet,
		Path:   "/auth/douyin/callback",
		Query:  url.Values{"code": {code}},
	}
	if err := s.d.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
