package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/limiter"
	"github.com/and161185/estatedesk/internal/model"
	"github.com/and161185/estatedesk/internal/repository"
	"github.com/and161185/estatedesk/internal/workflow"
)

type fakeUsers struct {
	byID map[uuid.UUID]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uuid.UUID]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if (u.Email != "" && x.Email == u.Email) || (u.Phone != "" && x.Phone == u.Phone) {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) find(match func(*model.User) bool) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id })
}
func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email != "" && u.Email == email })
}
func (f *fakeUsers) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Phone != "" && u.Phone == phone })
}
func (f *fakeUsers) SetPassword(_ context.Context, id uuid.UUID, hash, salt []byte) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PwdHash, u.SaltAuth = hash, salt
	return nil
}

type fakeProfiles struct {
	byID map[uuid.UUID]*model.Profile
}

var _ repository.ProfileRepository = (*fakeProfiles)(nil)

func (f *fakeProfiles) Get(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}
func (f *fakeProfiles) Update(_ context.Context, p *model.Profile) error {
	if _, ok := f.byID[p.ID]; !ok {
		return errs.ErrNotFound
	}
	c := *p
	f.byID[p.ID] = &c
	return nil
}
func (f *fakeProfiles) SetMFA(_ context.Context, id uuid.UUID, enabled bool) error {
	p, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	p.MFAEnabled = enabled
	return nil
}

type fakeAdmins struct {
	byName  map[string]*model.AdminUser
	touched map[uuid.UUID]time.Time
}

var _ repository.AdminRepository = (*fakeAdmins)(nil)

func (f *fakeAdmins) Create(_ context.Context, a *model.AdminUser) error {
	if _, ok := f.byName[a.Username]; ok {
		return errs.ErrAlreadyExists
	}
	c := *a
	f.byName[a.Username] = &c
	return nil
}
func (f *fakeAdmins) GetByUsername(_ context.Context, username string) (*model.AdminUser, error) {
	a, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *a
	return &c, nil
}
func (f *fakeAdmins) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if f.touched == nil {
		f.touched = map[uuid.UUID]time.Time{}
	}
	f.touched[id] = at
	return nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	allowCalls   int
	failureCalls int
	successCalls int
	lastKey      limiter.Key
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, k limiter.Key) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastKey = k
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, limiter.Key) error {
	l.successCalls++
	return nil
}
func (l *fakeLimiter) Failure(context.Context, limiter.Key) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type sent struct{ to, message string }

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{to, message})
	return nil
}

// lastCode returns the trailing six digits of the last message.
func (f *fakeSender) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	m := f.sent[len(f.sent)-1].message
	return m[len(m)-6:]
}

type fakeFederation struct {
	email string
	err   error
}

func (f *fakeFederation) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}
func (f *fakeFederation) Identity(context.Context, string) (string, error) { return f.email, f.err }

// memMaintenance is an in-memory MaintenanceRepository honoring the status guard.
type memMaintenance struct {
	rows map[uuid.UUID]*model.MaintenanceRequest
}

func (m *memMaintenance) List(_ context.Context, f repository.Filter) ([]model.MaintenanceRequest, error) {
	out := []model.MaintenanceRequest{}
	for _, r := range m.rows {
		if (f.OwnerID == uuid.Nil || r.ResidentID == f.OwnerID) && (f.Status == "" || string(r.Status) == f.Status) {
			out = append(out, *r)
		}
	}
	return out, nil
}
func (m *memMaintenance) Get(_ context.Context, id uuid.UUID) (*model.MaintenanceRequest, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}
func (m *memMaintenance) Create(_ context.Context, r *model.MaintenanceRequest) error {
	c := *r
	m.rows[r.ID] = &c
	return nil
}
func (m *memMaintenance) UpdateStatus(
	_ context.Context, id uuid.UUID, from, to workflow.MaintenanceStatus, st repository.Stamp,
) (*model.MaintenanceRequest, error) {
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return nil, errs.ErrVersionConflict
	}
	r.Status, r.UpdatedAt = to, st.At
	switch to {
	case workflow.MaintenanceAcknowledged:
		r.AcknowledgedBy, r.AcknowledgedAt = st.Actor, &st.At
	case workflow.MaintenanceCompleted:
		r.CompletedAt = &st.At
	}
	c := *r
	return &c, nil
}
func (m *memMaintenance) CountByStatus(context.Context, uuid.UUID) ([]model.StatusCount, error) {
	return nil, errors.New("not used")
}

type memVisitors struct {
	rows map[uuid.UUID]*model.VisitorRequest
}

func (m *memVisitors) List(_ context.Context, f repository.Filter) ([]model.VisitorRequest, error) {
	out := []model.VisitorRequest{}
	for _, r := range m.rows {
		if (f.OwnerID == uuid.Nil || r.ResidentID == f.OwnerID) && (f.Status == "" || string(r.Status) == f.Status) {
			out = append(out, *r)
		}
	}
	return out, nil
}
func (m *memVisitors) Get(_ context.Context, id uuid.UUID) (*model.VisitorRequest, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}
func (m *memVisitors) Create(_ context.Context, r *model.VisitorRequest) error {
	c := *r
	m.rows[r.ID] = &c
	return nil
}
func (m *memVisitors) UpdateStatus(
	_ context.Context, id uuid.UUID, from, to workflow.VisitorStatus, st repository.Stamp,
) (*model.VisitorRequest, error) {
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return nil, errs.ErrVersionConflict
	}
	r.Status, r.UpdatedAt = to, st.At
	if to == workflow.VisitorApproved {
		r.ApprovedBy, r.ApprovedAt = st.Actor, &st.At
	}
	c := *r
	return &c, nil
}
func (m *memVisitors) CountByStatus(_ context.Context, owner uuid.UUID) ([]model.StatusCount, error) {
	counts := map[string]int{}
	for _, r := range m.rows {
		if owner == uuid.Nil || r.ResidentID == owner {
			counts[string(r.Status)]++
		}
	}
	var out []model.StatusCount
	for _, s := range workflow.AllVisitorStatuses() {
		if n := counts[string(s)]; n > 0 {
			out = append(out, model.StatusCount{Kind: workflow.KindVisitor, Status: string(s), Count: n})
		}
	}
	return out, nil
}

type memDeliveries struct {
	rows map[uuid.UUID]*model.Delivery
}

func (m *memDeliveries) List(_ context.Context, f repository.Filter) ([]model.Delivery, error) {
	out := []model.Delivery{}
	for _, r := range m.rows {
		if f.OwnerID == uuid.Nil || r.UserID == f.OwnerID {
			out = append(out, *r)
		}
	}
	return out, nil
}
func (m *memDeliveries) Get(_ context.Context, id uuid.UUID) (*model.Delivery, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}
func (m *memDeliveries) Create(_ context.Context, d *model.Delivery) error {
	c := *d
	m.rows[d.ID] = &c
	return nil
}
func (m *memDeliveries) Update(_ context.Context, d *model.Delivery, seen workflow.DeliveryStatus) error {
	r, ok := m.rows[d.ID]
	if !ok || r.UserID != d.UserID || r.Status != seen {
		return errs.ErrVersionConflict
	}
	c := *d
	m.rows[d.ID] = &c
	return nil
}
func (m *memDeliveries) Delete(_ context.Context, id, userID uuid.UUID) error {
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return errs.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}
func (m *memDeliveries) CountByStatus(context.Context, uuid.UUID) ([]model.StatusCount, error) {
	return []model.StatusCount{{Kind: workflow.KindDelivery, Status: "scheduled", Count: 1}}, nil
}
