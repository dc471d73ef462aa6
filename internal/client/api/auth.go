package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/and161185/estatedesk/internal/model"
)

type credentials struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

type codeRequest struct {
	FactorID string `json:"factor_id,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Code     string `json:"code,omitempty"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (model.UserSession, error) {
	var us model.UserSession
	err := c.call(ctx, http.MethodPost, "/auth/signup", nil, "", credentials{Email: email, Password: password}, &us)
	return us, err
}

func (c *Client) SignIn(ctx context.Context, email, password string) (model.UserSession, error) {
	var us model.UserSession
	err := c.call(ctx, http.MethodPost, "/auth/signin", nil, "", credentials{Email: email, Password: password}, &us)
	return us, err
}

func (c *Client) VerifyMFA(ctx context.Context, factorID, code string) (model.UserSession, error) {
	var us model.UserSession
	err := c.call(ctx, http.MethodPost, "/auth/mfa/verify", nil, "", codeRequest{FactorID: factorID, Code: code}, &us)
	return us, err
}

func (c *Client) SendPhoneCode(ctx context.Context, phone string) error {
	return c.call(ctx, http.MethodPost, "/auth/phone/send", nil, "", codeRequest{Phone: phone}, nil)
}

func (c *Client) VerifyPhoneCode(ctx context.Context, phone, code string) (model.UserSession, error) {
	var us model.UserSession
	err := c.call(ctx, http.MethodPost, "/auth/phone/verify", nil, "", codeRequest{Phone: phone, Code: code}, &us)
	return us, err
}

// FederatedURL asks the server for the provider consent URL.
func (c *Client) FederatedURL(ctx context.Context, returnTo string) (string, error) {
	q := url.Values{}
	if returnTo != "" {
		q.Set("return_to", returnTo)
	}
	var out struct {
		URL string `json:"url"`
	}
	err := c.call(ctx, http.MethodGet, "/auth/google", q, "", nil, &out)
	return out.URL, err
}

// CurrentSession validates token and describes the session it belongs to.
func (c *Client) CurrentSession(ctx context.Context, token string) (model.UserSession, error) {
	var us model.UserSession
	err := c.call(ctx, http.MethodGet, "/auth/session", nil, token, nil, &us)
	return us, err
}

// SignOut revokes token on the server.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, "/auth/signout", nil, token, nil, nil)
}

// AdminLogin checks administrator credentials.
func (c *Client) AdminLogin(ctx context.Context, username, password string) (model.AdminSession, error) {
	var s model.AdminSession
	err := c.call(ctx, http.MethodPost, "/admin/login", nil, "", credentials{Username: username, Password: password}, &s)
	return s, err
}
