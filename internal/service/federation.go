package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Federation is an external identity provider reached through an OAuth2 redirect.
type Federation interface {
	AuthCodeURL(state string) string
	// Identity exchanges an authorization code and returns the verified email.
	Identity(ctx context.Context, code string) (string, error)
}

// OAuthFederation implements Federation over an OAuth2/OIDC provider.
type OAuthFederation struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewGoogleFederation configures Google sign-in.
func NewGoogleFederation(clientID, clientSecret, redirectURL string) *OAuthFederation {
	return &OAuthFederation{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (f *OAuthFederation) AuthCodeURL(state string) string {
	return f.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (f *OAuthFederation) Identity(ctx context.Context, code string) (string, error) {
	tok, err := f.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("oauth exchange: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userInfoURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}
	var info struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("userinfo: %w", err)
	}
	if info.Email == "" || !info.EmailVerified {
		return "", fmt.Errorf("userinfo: no verified email")
	}
	return info.Email, nil
}
