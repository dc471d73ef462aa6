package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/service"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	FactorID string `json:"factor_id,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Code     string `json:"code,omitempty"`
}

type adminCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *api) signUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !a.decode(w, r, &in) {
		return
	}
	us, err := a.d.Auth.SignUp(r.Context(), in.Email, in.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, us)
}

func (a *api) signIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !a.decode(w, r, &in) {
		return
	}
	us, err := a.d.Auth.SignIn(r.Context(), in.Email, in.Password, clientIP(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (a *api) verifyMFA(w http.ResponseWriter, r *http.Request) {
	var in codeRequest
	if !a.decode(w, r, &in) {
		return
	}
	us, err := a.d.Auth.VerifyMFA(r.Context(), in.FactorID, in.Code, clientIP(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (a *api) sendPhoneCode(w http.ResponseWriter, r *http.Request) {
	var in codeRequest
	if !a.decode(w, r, &in) {
		return
	}
	if err := a.d.Auth.SendPhoneCode(r.Context(), in.Phone); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) verifyPhoneCode(w http.ResponseWriter, r *http.Request) {
	var in codeRequest
	if !a.decode(w, r, &in) {
		return
	}
	us, err := a.d.Auth.VerifyPhoneCode(r.Context(), in.Phone, in.Code, clientIP(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (a *api) federatedURL(w http.ResponseWriter, r *http.Request) {
	u, err := a.d.Auth.FederatedURL(r.Context(), r.URL.Query().Get("return_to"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

// federatedCallback finishes the provider redirect and hands the token to the
// return URL in the fragment, where it never reaches server logs.
func (a *api) federatedCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		a.fail(w, r, errs.ErrUnauthorized)
		return
	}
	us, returnTo, err := a.d.Auth.CompleteFederated(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if returnTo == "" {
		returnTo = a.d.OAuthReturnURL
	}
	target, err := url.Parse(returnTo)
	if err != nil || returnTo == "" {
		writeJSON(w, http.StatusOK, us)
		return
	}
	frag := url.Values{}
	frag.Set("access_token", us.AccessToken)
	frag.Set("expires_at", strconv.FormatInt(us.ExpiresAt.Unix(), 10))
	target.Fragment = frag.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// currentSession describes the presented resident token.
func (a *api) currentSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromCtx(r.Context())
	if !ok || claims.Kind != service.KindUser {
		a.fail(w, r, errs.ErrForbidden)
		return
	}
	uid, err := claims.UserID()
	if err != nil {
		a.fail(w, r, errs.ErrUnauthorized)
		return
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, model.UserSession{
		AccessToken: bearer(r), UserID: uid, Email: claims.Email, ExpiresAt: exp,
	})
}

func (a *api) signOut(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromCtx(r.Context())
	if err := a.d.Auth.SignOut(r.Context(), claims); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) adminLogin(w http.ResponseWriter, r *http.Request) {
	var in adminCredentials
	if !a.decode(w, r, &in) {
		return
	}
	s, err := a.d.Admin.Login(r.Context(), in.Username, in.Password, clientIP(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
