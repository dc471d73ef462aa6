// Command estatedesk is a terminal client for the estatedesk service.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/client/api"
	"github.com/and161185/estatedesk/internal/client/authflow"
	"github.com/and161185/estatedesk/internal/client/guard"
	"github.com/and161185/estatedesk/internal/client/lifecycle"
	"github.com/and161185/estatedesk/internal/client/session"
	"github.com/and161185/estatedesk/internal/config"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/workflow"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprint(w, `estatedesk CLI
Usage:
  estatedesk [-server URL] [-state-dir DIR] [-timeout D] <cmd> [args]

Session:
  version
  whoami
  open        <path>                          (route guard decision)
  signup      -email E -password P
  signin      -email E -password P [-from PATH] (prompts for a code when MFA is on)
  phone       -phone N [-from PATH]            (prompts for the texted code)
  google      [-return URL] [-from PATH]       (prints the provider URL)
  callback    -token T [-from PATH]
  admin-login -u USER -p PASS
  signout

Requests:
  deliveries  list|create|status|actions|delete
  maintenance list|create|status|actions
  visitors    list|create|status|actions
  watch       [-tables deliveries,maintenance_requests,...]

Other:
  announcements list|create|activate
  profile
  mfa         on|off
  dashboard
`)
}

// app bundles the client core for one invocation.
type app struct {
	api     *api.Client
	storage session.Storage
	store   *session.Store
	nav     *guard.Navigator
	flow    *authflow.Controller

	deliveries  *lifecycle.Manager[model.Delivery, workflow.DeliveryStatus]
	maintenance *lifecycle.Manager[model.MaintenanceRequest, workflow.MaintenanceStatus]
	visitors    *lifecycle.Manager[model.VisitorRequest, workflow.VisitorStatus]

	in  *bufio.Reader
	out io.Writer
	log *zap.Logger
}

func newApp(ctx context.Context, cfg config.Client, in io.Reader, out io.Writer, log *zap.Logger) (*app, error) {
	c, err := api.New(cfg.ServerURL, cfg.Timeout, api.WithLogger(log))
	if err != nil {
		return nil, err
	}
	a := &app{
		api:         c,
		storage:     session.FileStorage{Dir: cfg.StateDir},
		deliveries:  lifecycle.New[model.Delivery, workflow.DeliveryStatus](workflow.KindDelivery, c.Deliveries(), log),
		maintenance: lifecycle.New[model.MaintenanceRequest, workflow.MaintenanceStatus](workflow.KindMaintenance, c.Maintenance(), log),
		visitors:    lifecycle.New[model.VisitorRequest, workflow.VisitorStatus](workflow.KindVisitor, c.Visitors(), log),
		in:          bufio.NewReader(in),
		out:         out,
		log:         log,
	}
	if err := a.openSession(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// openSession restores the persisted sessions and rebinds everything that reads them.
func (a *app) openSession(ctx context.Context) error {
	store, err := session.Open(ctx, a.api, a.storage, a.log)
	if err != nil {
		return err
	}
	a.store = store
	a.api.Tokens = store
	a.nav = guard.NewNavigator(store)
	a.flow = authflow.New(store)
	return nil
}

// reload restarts the session state from what was persisted.
func (a *app) reload(ctx context.Context) error {
	a.log.Debug("reloading session state")
	a.store.Close()
	return a.openSession(ctx)
}

func (a *app) close() { a.store.Close() }

// run dispatches one subcommand.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	rest := args[1:]
	switch args[0] {
	case "whoami":
		fmt.Fprintln(a.out, describe(a.store.Current()))
		return nil
	case "open":
		return a.open(rest)
	case "signup":
		return a.signUp(ctx, rest)
	case "signin":
		return a.signIn(ctx, rest)
	case "phone":
		return a.phone(ctx, rest)
	case "google":
		return a.google(ctx, rest)
	case "callback":
		return a.callback(ctx, rest)
	case "admin-login":
		return a.adminLogin(ctx, rest)
	case "signout":
		if err := a.store.SignOut(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "signed out")
		return nil
	case "deliveries":
		return a.deliveriesCmd(ctx, rest)
	case "maintenance":
		return a.maintenanceCmd(ctx, rest)
	case "visitors":
		return a.visitorsCmd(ctx, rest)
	case "watch":
		return a.watch(ctx, rest)
	case "announcements":
		return a.announcementsCmd(ctx, rest)
	case "profile":
		p, err := a.api.Profile(ctx)
		if err != nil {
			return err
		}
		a.printJSON(p)
		return nil
	case "mfa":
		return a.mfa(ctx, rest)
	case "dashboard":
		counts, err := a.api.Dashboard(ctx)
		if err != nil {
			return err
		}
		for _, c := range counts {
			fmt.Fprintf(a.out, "%-12s %-14s %d\n", c.Kind, c.Status, c.Count)
		}
		return nil
	default:
		return errUsage
	}
}

// describe renders the resolved session on one line.
func describe(s model.Session) string {
	switch v := s.(type) {
	case model.Admin:
		return "admin " + v.Username
	case model.Resident:
		if v.Email != "" {
			return "resident " + v.Email
		}
		return "resident " + v.UserID.String()
	default:
		return "anonymous"
	}
}

func (a *app) printJSON(v any) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func main() { os.Exit(realMain()) }

func realMain() int {
	config.LoadDotEnv()
	cfg, args, err := config.LoadClient(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}
	if args[0] == "version" {
		fmt.Printf("estatedesk %s (%s)\n", version, buildDate)
		return 0
	}

	logger := zap.NewNop()
	if os.Getenv("ESTATEDESK_DEBUG") != "" {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, os.Stdin, os.Stdout, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer a.close()

	if err := a.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
