// Package authflow drives the sign-in screens: password, multi-factor
// challenge, phone one-time code, federated redirect and admin credentials.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/and161185/estatedesk/internal/client/guard"
	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
)

// State of the flow.
type State string

const (
	PasswordEntry     State = "password-entry"
	MFAChallenge      State = "mfa-challenge"
	PhoneOTPChallenge State = "phone-otp-challenge"
	AdminCredentials  State = "admin-credential-entry"
	Done              State = "done"
)

// CodeLength is the length at which one-time codes submit themselves.
const CodeLength = 6

// ErrAdminCredentialsRequired is shown when either admin field is blank.
var ErrAdminCredentialsRequired error = inputError("Username and password are required")

// inputError is a validation failure whose text is shown as is.
type inputError string

func (e inputError) Error() string { return string(e) }
func (e inputError) Unwrap() error { return errs.ErrValidation }

var factorRe = regexp.MustCompile(`factor_id=([^&\s]+)`)

// Sessions is the part of the session store the flow drives.
type Sessions interface {
	Current() model.Session
	SignIn(ctx context.Context, email, password string) (model.UserSession, error)
	VerifyMFA(ctx context.Context, factorID, code string) (model.UserSession, error)
	SignInWithPhone(ctx context.Context, phone string) error
	VerifyOtp(ctx context.Context, phone, code string) (model.UserSession, error)
	SignInWithGoogle(ctx context.Context, returnTo string) (string, error)
	CompleteFederated(ctx context.Context, token string) (model.UserSession, error)
	AdminSignIn(ctx context.Context, username, password string) (model.AdminSession, error)
}

// Outcome tells the caller where to go once the flow has finished. Reload asks
// for a full restart so every component picks up the new session.
type Outcome struct {
	To     string
	Reload bool
}

// Controller is the flow state machine. Methods are safe for concurrent use;
// the last error is kept for display until the next submission.
type Controller struct {
	sessions Sessions

	mu       sync.Mutex
	state    State
	from     string
	factorID string
	phone    string
	lastErr  error
}

// New starts at password entry.
func New(s Sessions) *Controller {
	return &Controller{sessions: s, state: PasswordEntry}
}

// Enter opens the auth page with the state carried by a guard redirect. An
// already signed-in caller gets an outcome right away.
func (c *Controller) Enter(from string, requireAdmin bool) (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.from = from
	c.factorID, c.phone, c.lastErr = "", "", nil
	c.state = PasswordEntry
	if requireAdmin {
		c.state = AdminCredentials
	}

	switch c.sessions.Current().(type) {
	case model.Admin:
		c.state = Done
		return Outcome{To: guard.PathAdmin}, true
	case model.Resident:
		if !requireAdmin {
			c.state = Done
			return Outcome{To: c.destination()}, true
		}
	}
	return Outcome{}, false
}

// State reports the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err is the error surfaced by the last submission.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// FactorID is the challenge captured from an MFA-required failure.
func (c *Controller) FactorID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.factorID
}

// UseAdmin switches to the admin credential form.
func (c *Controller) UseAdmin() { c.moveTo(AdminCredentials) }

// Back returns to password entry from any challenge.
func (c *Controller) Back() { c.moveTo(PasswordEntry) }

func (c *Controller) moveTo(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.factorID, c.phone, c.lastErr = "", "", nil
}

func (c *Controller) destination() string {
	if c.from == "" || c.from == guard.PathAuth {
		return guard.PathHome
	}
	return c.from
}

func (c *Controller) expect(states ...State) error {
	for _, s := range states {
		if c.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: not available in %s", errs.ErrValidation, c.state)
}

// finish records err, or completes the flow.
func (c *Controller) finish(err error) (Outcome, error) {
	c.lastErr = err
	if err != nil {
		return Outcome{}, err
	}
	c.state = Done
	return Outcome{To: c.destination()}, nil
}

// SubmitPassword signs in. A failure carrying an MFA signal moves to the
// challenge with the factor id taken from the error text.
func (c *Controller) SubmitPassword(ctx context.Context, email, password string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(PasswordEntry); err != nil {
		return Outcome{}, err
	}
	_, err := c.sessions.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil && isMFA(err) {
		if m := factorRe.FindStringSubmatch(err.Error()); m != nil {
			c.factorID = m[1]
			c.state = MFAChallenge
			c.lastErr = nil
			return Outcome{}, err
		}
	}
	return c.finish(err)
}

func isMFA(err error) bool {
	return errors.Is(err, errs.ErrMFARequired) || strings.Contains(strings.ToLower(err.Error()), "mfa")
}

// SubmitMFA verifies code against the captured factor. Failures keep the state.
func (c *Controller) SubmitMFA(ctx context.Context, code string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(MFAChallenge); err != nil {
		return Outcome{}, err
	}
	_, err := c.sessions.VerifyMFA(ctx, c.factorID, strings.TrimSpace(code))
	return c.finish(err)
}

// RequestPhoneCode sends a one-time code and moves to the phone challenge.
func (c *Controller) RequestPhoneCode(ctx context.Context, phone string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(PasswordEntry, PhoneOTPChallenge); err != nil {
		return err
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		c.lastErr = fmt.Errorf("%w: phone required", errs.ErrValidation)
		return c.lastErr
	}
	if err := c.sessions.SignInWithPhone(ctx, phone); err != nil {
		c.lastErr = err
		return err
	}
	c.phone, c.lastErr = phone, nil
	c.state = PhoneOTPChallenge
	return nil
}

// SubmitPhoneCode verifies the code sent to the captured phone number.
func (c *Controller) SubmitPhoneCode(ctx context.Context, code string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(PhoneOTPChallenge); err != nil {
		return Outcome{}, err
	}
	_, err := c.sessions.VerifyOtp(ctx, c.phone, strings.TrimSpace(code))
	return c.finish(err)
}

// Type feeds the current content of a code input. It submits once exactly
// CodeLength characters are present in either challenge state.
func (c *Controller) Type(ctx context.Context, code string) (Outcome, bool, error) {
	if len([]rune(code)) != CodeLength {
		return Outcome{}, false, nil
	}
	switch c.State() {
	case MFAChallenge:
		out, err := c.SubmitMFA(ctx, code)
		return out, true, err
	case PhoneOTPChallenge:
		out, err := c.SubmitPhoneCode(ctx, code)
		return out, true, err
	default:
		return Outcome{}, false, nil
	}
}

// Federated returns the provider URL to leave the application for.
func (c *Controller) Federated(ctx context.Context, callbackURL string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, err := c.sessions.SignInWithGoogle(ctx, callbackURL)
	c.lastErr = err
	return u, err
}

// Callback finalizes a federated sign-in. On failure the caller goes back to
// the auth page.
func (c *Controller) Callback(ctx context.Context, token string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.sessions.CompleteFederated(ctx, token); err != nil {
		c.lastErr = err
		c.state = PasswordEntry
		return Outcome{To: guard.PathAuth}, err
	}
	c.lastErr = nil
	c.state = Done
	return Outcome{To: c.destination()}, nil
}

// SubmitAdmin checks administrator credentials. Success reloads into /admin.
func (c *Controller) SubmitAdmin(ctx context.Context, username, password string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(AdminCredentials); err != nil {
		return Outcome{}, err
	}
	username, password = strings.TrimSpace(username), strings.TrimSpace(password)
	if username == "" || password == "" {
		c.lastErr = ErrAdminCredentialsRequired
		return Outcome{}, c.lastErr
	}
	if _, err := c.sessions.AdminSignIn(ctx, username, password); err != nil {
		c.lastErr = err
		return Outcome{}, err
	}
	c.lastErr = nil
	c.state = Done
	return Outcome{To: guard.PathAdmin, Reload: true}, nil
}
