package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/and161185/estatedesk/internal/client/authflow"
	"github.com/and161185/estatedesk/internal/client/guard"
	"github.com/and161185/estatedesk/internal/errs"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// open runs the route guard for path and reports where the client ends up.
func (a *app) open(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	d := a.nav.Go(args[0])
	switch {
	case d.Kind == guard.Render:
		fmt.Fprintf(a.out, "render %s\n", a.nav.Location())
	case d.From != "" && d.RequireAdmin:
		fmt.Fprintf(a.out, "redirect %s (from %s, admin required)\n", d.To, d.From)
	case d.From != "":
		fmt.Fprintf(a.out, "redirect %s (from %s)\n", d.To, d.From)
	default:
		fmt.Fprintf(a.out, "redirect %s\n", d.To)
	}
	return nil
}

// arrive follows an auth outcome through the guard, reloading the session
// state first when the outcome asks for it.
func (a *app) arrive(ctx context.Context, out authflow.Outcome) error {
	if out.Reload {
		if err := a.reload(ctx); err != nil {
			return err
		}
	}
	d := a.nav.Go(out.To)
	fmt.Fprintf(a.out, "%s; %s %s\n", describe(a.store.Current()), d.Kind, a.nav.Location())
	return nil
}

// readCode prompts for a one-time code and feeds it to the flow.
func (a *app) readCode(ctx context.Context) (authflow.Outcome, error) {
	fmt.Fprint(a.out, "Code: ")
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return authflow.Outcome{}, err
	}
	out, submitted, err := a.flow.Type(ctx, strings.TrimSpace(line))
	if !submitted {
		return authflow.Outcome{}, fmt.Errorf("%w: code must be %d characters", errs.ErrValidation, authflow.CodeLength)
	}
	return out, err
}

func (a *app) signUp(ctx context.Context, args []string) error {
	fs := newFlags("signup")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("%w: need -email and -password", errs.ErrValidation)
	}
	if _, err := a.store.SignUp(ctx, strings.TrimSpace(*email), *password); err != nil {
		return err
	}
	return a.arrive(ctx, authflow.Outcome{To: guard.PathHome})
}

func (a *app) signIn(ctx context.Context, args []string) error {
	fs := newFlags("signin")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	from := fs.String("from", "", "page to continue to")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if out, done := a.flow.Enter(*from, false); done {
		return a.arrive(ctx, out)
	}
	out, err := a.flow.SubmitPassword(ctx, *email, *password)
	if err != nil && a.flow.State() == authflow.MFAChallenge {
		fmt.Fprintln(a.out, "Two-factor code required.")
		out, err = a.readCode(ctx)
	}
	if err != nil {
		return err
	}
	return a.arrive(ctx, out)
}

func (a *app) phone(ctx context.Context, args []string) error {
	fs := newFlags("phone")
	number := fs.String("phone", "", "phone number")
	from := fs.String("from", "", "page to continue to")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if out, done := a.flow.Enter(*from, false); done {
		return a.arrive(ctx, out)
	}
	if err := a.flow.RequestPhoneCode(ctx, *number); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "A code was sent to %s.\n", strings.TrimSpace(*number))
	out, err := a.readCode(ctx)
	if err != nil {
		return err
	}
	return a.arrive(ctx, out)
}

func (a *app) google(ctx context.Context, args []string) error {
	fs := newFlags("google")
	returnTo := fs.String("return", "", "callback URL after consent")
	from := fs.String("from", "", "page to continue to")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if out, done := a.flow.Enter(*from, false); done {
		return a.arrive(ctx, out)
	}
	callback, err := withFrom(*returnTo, *from)
	if err != nil {
		return err
	}
	u, err := a.flow.Federated(ctx, callback)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, u)
	return nil
}

// withFrom carries the guarded page through the provider round trip as a
// "from" query parameter of the callback URL.
func withFrom(callback, from string) (string, error) {
	if callback == "" || from == "" {
		return callback, nil
	}
	u, err := url.Parse(callback)
	if err != nil {
		return "", fmt.Errorf("%w: bad return URL %q", errs.ErrValidation, callback)
	}
	q := u.Query()
	q.Set("from", from)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *app) callback(ctx context.Context, args []string) error {
	fs := newFlags("callback")
	token := fs.String("token", "", "access token from the callback")
	from := fs.String("from", "", "page to continue to")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	a.flow.Enter(*from, false)
	out, err := a.flow.Callback(ctx, *token)
	if err != nil {
		fmt.Fprintf(a.out, "sign-in failed; back to %s\n", out.To)
		return err
	}
	return a.arrive(ctx, out)
}

func (a *app) adminLogin(ctx context.Context, args []string) error {
	fs := newFlags("admin-login")
	user := fs.String("u", "", "admin username")
	pass := fs.String("p", "", "admin password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if out, done := a.flow.Enter(guard.PathAdmin, true); done {
		return a.arrive(ctx, out)
	}
	out, err := a.flow.SubmitAdmin(ctx, *user, *pass)
	if err != nil {
		return err
	}
	return a.arrive(ctx, out)
}

func (a *app) mfa(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return errUsage
	}
	if err := a.api.SetMFA(ctx, args[0] == "on"); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "two-factor %s\n", args[0])
	return nil
}
