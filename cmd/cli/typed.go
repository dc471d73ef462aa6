package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/client/lifecycle"
	"github.com/and161185/estatedesk/internal/client/notifier"
	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/workflow"
)

// ------- generic request commands -------

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad id %q", errs.ErrValidation, raw)
	}
	return id, nil
}

// parseWhen accepts RFC 3339, "2006-01-02 15:04" or a bare date.
func parseWhen(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad time %q", errs.ErrValidation, raw)
}

func findRecord[R lifecycle.Record[S], S workflow.Status[S]](ctx context.Context, m *lifecycle.Manager[R, S], id uuid.UUID) (R, error) {
	rows, err := m.List(ctx, "")
	if err != nil {
		var zero R
		return zero, err
	}
	for _, r := range rows {
		if r.Key() == id {
			return r, nil
		}
	}
	var zero R
	return zero, errs.ErrNotFound
}

func listCmd[R lifecycle.Record[S], S workflow.Status[S]](ctx context.Context, a *app, m *lifecycle.Manager[R, S], args []string) error {
	fs := newFlags("list")
	status := fs.String("status", "", "status filter")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	rows, err := m.List(ctx, *status)
	if err != nil {
		return err
	}
	a.printJSON(rows)
	return nil
}

func statusCmd[R lifecycle.Record[S], S workflow.Status[S]](ctx context.Context, a *app, m *lifecycle.Manager[R, S], parse func(string) (S, error), args []string) error {
	fs := newFlags("status")
	rawID := fs.String("id", "", "record id")
	rawTo := fs.String("to", "", "target status")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := parseID(*rawID)
	if err != nil {
		return err
	}
	to, err := parse(*rawTo)
	if err != nil {
		return err
	}
	r, err := findRecord(ctx, m, id)
	if err != nil {
		return err
	}
	out, err := m.UpdateStatus(ctx, r, to)
	if err != nil {
		return err
	}
	a.printJSON(out)
	return nil
}

// actionsCmd prints the statuses a record may move to next.
func actionsCmd[R lifecycle.Record[S], S workflow.Status[S]](ctx context.Context, a *app, m *lifecycle.Manager[R, S], args []string) error {
	fs := newFlags("actions")
	rawID := fs.String("id", "", "record id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := parseID(*rawID)
	if err != nil {
		return err
	}
	r, err := findRecord(ctx, m, id)
	if err != nil {
		return err
	}
	next := m.Actions(r)
	if len(next) == 0 {
		fmt.Fprintf(a.out, "%s is final\n", r.CurrentStatus().Label())
		return nil
	}
	for _, s := range next {
		fmt.Fprintf(a.out, "%s\t%s\n", string(s), s.Label())
	}
	return nil
}

// ------- per-resource commands -------

func (a *app) deliveriesCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	m := a.deliveries
	switch args[0] {
	case "list":
		return listCmd(ctx, a, m, args[1:])
	case "status":
		return statusCmd(ctx, a, m, workflow.ParseDeliveryStatus, args[1:])
	case "actions":
		return actionsCmd(ctx, a, m, args[1:])
	case "create":
		fs := newFlags("create")
		name := fs.String("name", "", "delivery name")
		carrier := fs.String("carrier", "", "carrier")
		tracking := fs.String("tracking", "", "tracking number")
		date := fs.String("date", "", "scheduled date")
		notes := fs.String("notes", "", "notes")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		d := model.Delivery{DeliveryName: *name, Carrier: *carrier, TrackingNumber: *tracking, Notes: *notes}
		if *date != "" {
			t, err := parseWhen(*date)
			if err != nil {
				return err
			}
			d.ScheduledDate = &t
		}
		out, err := m.Create(ctx, d)
		if err != nil {
			return err
		}
		a.printJSON(out)
		return nil
	case "delete":
		fs := newFlags("delete")
		rawID := fs.String("id", "", "delivery id")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		id, err := parseID(*rawID)
		if err != nil {
			return err
		}
		if err := m.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "deleted")
		return nil
	default:
		return errUsage
	}
}

func (a *app) maintenanceCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	m := a.maintenance
	switch args[0] {
	case "list":
		return listCmd(ctx, a, m, args[1:])
	case "status":
		return statusCmd(ctx, a, m, workflow.ParseMaintenanceStatus, args[1:])
	case "actions":
		return actionsCmd(ctx, a, m, args[1:])
	case "create":
		fs := newFlags("create")
		var r model.MaintenanceRequest
		fs.StringVar(&r.ResidentName, "name", "", "resident name")
		fs.StringVar(&r.FlatNumber, "flat", "", "flat number")
		fs.StringVar(&r.ContactNumber, "contact", "", "contact number")
		fs.StringVar(&r.Title, "title", "", "title")
		fs.StringVar(&r.Description, "description", "", "description")
		fs.StringVar(&r.Category, "category", "", "category")
		urgency := fs.String("urgency", string(model.UrgencyMedium), "low|medium|high")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		r.Urgency = model.Urgency(*urgency)
		out, err := m.Create(ctx, r)
		if err != nil {
			return err
		}
		a.printJSON(out)
		return nil
	default:
		return errUsage
	}
}

func (a *app) visitorsCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	m := a.visitors
	switch args[0] {
	case "list":
		return listCmd(ctx, a, m, args[1:])
	case "status":
		return statusCmd(ctx, a, m, workflow.ParseVisitorStatus, args[1:])
	case "actions":
		return actionsCmd(ctx, a, m, args[1:])
	case "create":
		fs := newFlags("create")
		var v model.VisitorRequest
		fs.StringVar(&v.HostName, "host", "", "host name")
		fs.StringVar(&v.HostFlatNumber, "flat", "", "host flat number")
		fs.StringVar(&v.HostContact, "contact", "", "host contact")
		fs.StringVar(&v.VisitorName, "visitor", "", "visitor name")
		fs.StringVar(&v.VisitorPhone, "phone", "", "visitor phone")
		fs.StringVar(&v.VisitorEmail, "email", "", "visitor email")
		fs.StringVar(&v.Purpose, "purpose", "", "purpose of the visit")
		arrival := fs.String("arrival", "", "expected arrival")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		if *arrival != "" {
			t, err := parseWhen(*arrival)
			if err != nil {
				return err
			}
			v.ExpectedArrival = t
		}
		out, err := m.Create(ctx, v)
		if err != nil {
			return err
		}
		a.printJSON(out)
		return nil
	default:
		return errUsage
	}
}

func (a *app) announcementsCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "list":
		rows, err := a.api.Announcements(ctx)
		if err != nil {
			return err
		}
		a.printJSON(rows)
		return nil
	case "create":
		fs := newFlags("create")
		var an model.Announcement
		fs.StringVar(&an.Title, "title", "", "title")
		fs.StringVar(&an.Content, "content", "", "content")
		inactive := fs.Bool("inactive", false, "create hidden")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		an.IsActive = !*inactive
		if err := an.Validate(); err != nil {
			return err
		}
		out, err := a.api.CreateAnnouncement(ctx, an)
		if err != nil {
			return err
		}
		a.printJSON(out)
		return nil
	case "activate":
		fs := newFlags("activate")
		rawID := fs.String("id", "", "announcement id")
		off := fs.Bool("off", false, "hide instead of show")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		id, err := parseID(*rawID)
		if err != nil {
			return err
		}
		return a.api.SetAnnouncementActive(ctx, id, !*off)
	default:
		return errUsage
	}
}

// watch prints notifications for remote changes until interrupted.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := newFlags("watch")
	tables := fs.String("tables", "", "comma-separated tables (all when empty)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	var list []string
	for _, t := range strings.Split(*tables, ",") {
		if t = strings.TrimSpace(t); t != "" {
			list = append(list, t)
		}
	}

	n := notifier.New(a.api, a.log,
		notifier.OnNotify(func(msg notifier.Notification) { fmt.Fprintln(a.out, msg.Message) }),
		notifier.Invalidates(workflow.KindDelivery, a.deliveries),
		notifier.Invalidates(workflow.KindMaintenance, a.maintenance),
		notifier.Invalidates(workflow.KindVisitor, a.visitors),
	)
	sub, err := n.Watch(ctx, list...)
	if err != nil {
		return err
	}
	defer sub.Close()

	select {
	case <-ctx.Done():
	case <-sub.Done():
		fmt.Fprintln(a.out, "stream closed")
	}
	return nil
}
