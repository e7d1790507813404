// Package usecasetest provides in-memory repositories and a seeded clinic for usecase tests.
package usecasetest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/appointment"
	catalogRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/catalog"
	packageRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/servicepackage"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicService/pkg/logger"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// Tx runs fn inline with a marker transaction in the context, so code that checks
// dbmetrics.IsInTransaction behaves as it does against PostgreSQL. Nested calls join.
type Tx struct{}

func (Tx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return inTx(ctx, fn) }

func (Tx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return inTx(ctx, fn)
}

func (Tx) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return inTx(ctx, fn)
}

func inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}
	return fn(dbmetrics.WithTx(ctx, markerTx{}))
}

// markerTx is never queried: in-memory repositories ignore the executor.
type markerTx struct{}

func (markerTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoDatabase
}

func (markerTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoDatabase
}

func (markerTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (markerTx) Commit() error { return nil }
func (markerTx) Rollback() error { return nil }

var errNoDatabase = errors.New("usecasetest: no database behind the marker transaction")

// DiscardLogger logger that drops everything below fatal
func DiscardLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "fatal")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Catalog in-memory catalog repository
type Catalog struct {
	Services     map[int64]*domain.Service
	Staff        map[int64]*domain.Staff
	Capabilities map[int64][]int64 // service id -> staff ids
	Windows      []domain.WorkingWindow
	TimeOffs     []domain.TimeOffException
}

func (c *Catalog) GetService(_ context.Context, id int64) (*domain.Service, error) {
	s, ok := c.Services[id]
	if !ok {
		return nil, catalogRepo.ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

func (c *Catalog) GetStaff(_ context.Context, id int64) (*domain.Staff, error) {
	s, ok := c.Staff[id]
	if !ok {
		return nil, catalogRepo.ErrStaffNotFound
	}
	cp := *s
	return &cp, nil
}

func (c *Catalog) ListCapableStaff(_ context.Context, serviceID int64) ([]domain.Staff, error) {
	ids := append([]int64(nil), c.Capabilities[serviceID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]domain.Staff, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.Staff[id]; ok && s.IsActive {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (c *Catalog) IsStaffCapable(_ context.Context, staffID, serviceID int64) (bool, error) {
	for _, id := range c.Capabilities[serviceID] {
		if id == staffID {
			return true, nil
		}
	}
	return false, nil
}

func (c *Catalog) ListWorkingWindows(_ context.Context, staffIDs []int64, weekday int) ([]domain.WorkingWindow, error) {
	result := make([]domain.WorkingWindow, 0)
	for _, w := range c.Windows {
		if w.Weekday == weekday && containsID(staffIDs, w.StaffID) {
			result = append(result, w)
		}
	}
	return result, nil
}

func (c *Catalog) ListTimeOff(_ context.Context, staffIDs []int64, date time.Time) ([]domain.TimeOffException, error) {
	result := make([]domain.TimeOffException, 0)
	for _, off := range c.TimeOffs {
		if sameDay(off.Date, date) && containsID(staffIDs, off.StaffID) {
			result = append(result, off)
		}
	}
	return result, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Appointments in-memory appointment repository
type Appointments struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Appointment
	Locks  []string // resources locked through LockResources, in call order
}

func NewAppointments() *Appointments {
	return &Appointments{rows: make(map[int64]domain.Appointment)}
}

// Seed stores a without going through Create and returns its id
func (r *Appointments) Seed(a domain.Appointment) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	r.rows[a.ID] = a
	return a.ID
}

// Get returns the stored row, deleted or not
func (r *Appointments) Get(id int64) (domain.Appointment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	return a, ok
}

// Count number of stored rows
func (r *Appointments) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *Appointments) Create(_ context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.rows[a.ID] = *a
	return a, nil
}

func (r *Appointments) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok || a.IsDeleted() {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *Appointments) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r *Appointments) GetByReference(_ context.Context, code string) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.ReferenceCode == code && !a.IsDeleted() {
			return &a, nil
		}
	}
	return nil, appointmentRepo.ErrAppointmentNotFound
}

func (r *Appointments) ReferenceExists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.ReferenceCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *Appointments) ListBlockingForDay(_ context.Context, filter domain.DayAppointmentsFilter) ([]*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*domain.Appointment, 0)
	for _, a := range r.rows {
		a := a
		if a.IsDeleted() || !a.Status.IsBlocking() || !sameDay(a.Date, filter.Date) {
			continue
		}
		if filter.ExcludeID != nil && a.ID == *filter.ExcludeID {
			continue
		}
		byService := filter.ServiceID != nil && a.ServiceID == *filter.ServiceID
		byStaff := a.StaffID != nil && containsID(filter.StaffIDs, *a.StaffID)
		if filter.ServiceID != nil || len(filter.StaffIDs) > 0 {
			if !byService && !byStaff {
				continue
			}
		}
		result = append(result, &a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime.IsBefore(result[j].StartTime)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *Appointments) LockResources(_ context.Context, date time.Time, staffIDs []int64, serviceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := date.Format(domain.DateFormat)
	for _, staffID := range staffIDs {
		r.Locks = append(r.Locks, fmt.Sprintf("staff:%d:%s", staffID, day))
	}
	r.Locks = append(r.Locks, fmt.Sprintf("service:%d:%s", serviceID, day))
	return nil
}

func (r *Appointments) update(id int64, fn func(a *domain.Appointment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok || a.IsDeleted() {
		return appointmentRepo.ErrAppointmentNotFound
	}
	fn(&a)
	a.UpdatedAt = time.Now()
	r.rows[id] = a
	return nil
}

func (r *Appointments) UpdateStatus(_ context.Context, id int64, status domain.AppointmentStatus) error {
	return r.update(id, func(a *domain.Appointment) { a.Status = status })
}

func (r *Appointments) UpdateSchedule(_ context.Context, id int64, date time.Time, start types.TimeString) error {
	return r.update(id, func(a *domain.Appointment) {
		a.Date = date
		a.StartTime = start
	})
}

func (r *Appointments) UpdateStaff(_ context.Context, id int64, staffID *int64) error {
	return r.update(id, func(a *domain.Appointment) { a.StaffID = staffID })
}

func (r *Appointments) UpdatePackage(_ context.Context, id int64, packageID *int64) error {
	return r.update(id, func(a *domain.Appointment) { a.ServicePackageID = packageID })
}

func (r *Appointments) UpdateDetails(_ context.Context, id int64, upd domain.AppointmentUpdate) error {
	return r.update(id, func(a *domain.Appointment) {
		apply := func(dst **string, f domain.Optional[string]) {
			if f.Set {
				*dst = f.Value
			}
		}
		apply(&a.Notes, upd.Notes)
		apply(&a.AdminNotes, upd.AdminNotes)
		apply(&a.CustomerName, upd.CustomerName)
		apply(&a.CustomerPhone, upd.CustomerPhone)
		apply(&a.CustomerEmail, upd.CustomerEmail)
	})
}

func (r *Appointments) SoftDelete(_ context.Context, id int64) error {
	return r.update(id, func(a *domain.Appointment) {
		now := time.Now()
		a.DeletedAt = &now
	})
}

// Logs in-memory appointment log repository
type Logs struct {
	mu      sync.Mutex
	entries []*domain.AppointmentLog
}

func (r *Logs) Append(_ context.Context, entry *domain.AppointmentLog) (*domain.AppointmentLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.entries) + 1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *Logs) HasAction(_ context.Context, appointmentID int64, action domain.LogAction) (bool, error) {
	return len(r.Actions(appointmentID, action)) > 0, nil
}

func (r *Logs) List(_ context.Context, filter domain.AppointmentLogFilter) ([]*domain.AppointmentLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*domain.AppointmentLog, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.AppointmentID != filter.AppointmentID {
			continue
		}
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// Actions returns entries for the appointment with the given action in insertion order
func (r *Logs) Actions(appointmentID int64, action domain.LogAction) []*domain.AppointmentLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*domain.AppointmentLog, 0)
	for _, e := range r.entries {
		if e.AppointmentID == appointmentID && e.Action == action {
			result = append(result, e)
		}
	}
	return result
}

// Packages in-memory package repository
type Packages struct {
	mu       sync.Mutex
	nextID   int64
	rows     map[int64]domain.ServicePackage
	logs     []*domain.PackageLog
	payments []*domain.PackagePayment
}

func NewPackages() *Packages {
	return &Packages{rows: make(map[int64]domain.ServicePackage)}
}

func (r *Packages) id() int64 {
	r.nextID++
	return r.nextID
}

// All returns every stored package ordered by id
func (r *Packages) All() []domain.ServicePackage {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.ServicePackage, 0, len(r.rows))
	for _, p := range r.rows {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Logs returns the ledger entries of a package in insertion order
func (r *Packages) Logs(packageID int64) []*domain.PackageLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*domain.PackageLog, 0)
	for _, l := range r.logs {
		if l.ServicePackageID == packageID {
			result = append(result, l)
		}
	}
	return result
}

func (r *Packages) Create(_ context.Context, p *domain.ServicePackage) (*domain.ServicePackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.rows[p.ID] = *p
	return p, nil
}

func (r *Packages) GetByID(_ context.Context, id int64) (*domain.ServicePackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, packageRepo.ErrPackageNotFound
	}
	return &p, nil
}

func (r *Packages) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServicePackage, error) {
	return r.GetByID(ctx, id)
}

func (r *Packages) ListByUser(_ context.Context, userID int64, status *domain.PackageStatus) ([]*domain.ServicePackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*domain.ServicePackage, 0)
	for _, p := range r.rows {
		if p.UserID != userID || (status != nil && p.Status != *status) {
			continue
		}
		p := p
		result = append(result, &p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (r *Packages) FindOldestActiveWithSessions(_ context.Context, userID, serviceID int64, day time.Time) (*domain.ServicePackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.ServicePackage
	for _, p := range r.rows {
		p := p
		if p.UserID != userID || p.ServiceID != serviceID || !p.IsActive() || !p.IsValidOn(day) {
			continue
		}
		if !p.Balance.IsSessions() || p.Balance.Remaining() <= 0 {
			continue
		}
		if best == nil || olderPackage(&p, best) {
			best = &p
		}
	}
	if best == nil {
		return nil, packageRepo.ErrPackageNotFound
	}
	return best, nil
}

// olderPackage starts_on ASC NULLS FIRST, then id
func olderPackage(a, b *domain.ServicePackage) bool {
	switch {
	case a.StartsOn == nil && b.StartsOn != nil:
		return true
	case a.StartsOn != nil && b.StartsOn == nil:
		return false
	case a.StartsOn != nil && b.StartsOn != nil && !a.StartsOn.Equal(*b.StartsOn):
		return a.StartsOn.Before(*b.StartsOn)
	}
	return a.ID < b.ID
}

func (r *Packages) UpdateBalance(_ context.Context, p *domain.ServicePackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID]; !ok {
		return packageRepo.ErrPackageNotFound
	}
	r.rows[p.ID] = *p
	return nil
}

func (r *Packages) UpdateStatus(_ context.Context, id int64, status domain.PackageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return packageRepo.ErrPackageNotFound
	}
	p.Status = status
	r.rows[id] = p
	return nil
}

func (r *Packages) CreateLog(_ context.Context, l *domain.PackageLog) (*domain.PackageLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = r.id()
	l.CreatedAt = time.Now()
	r.logs = append(r.logs, l)
	return l, nil
}

func (r *Packages) LatestAppointmentLog(_ context.Context, packageID int64, appointmentID *int64, appointmentRef *string) (*domain.PackageLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.logs) - 1; i >= 0; i-- {
		l := r.logs[i]
		if l.ServicePackageID != packageID {
			continue
		}
		byID := appointmentID != nil && l.AppointmentID != nil && *l.AppointmentID == *appointmentID
		byRef := appointmentRef != nil && l.AppointmentRef != nil && *l.AppointmentRef == *appointmentRef
		if byID || byRef {
			return l, nil
		}
	}
	return nil, packageRepo.ErrLogNotFound
}

func (r *Packages) ListLogs(_ context.Context, packageID int64) ([]*domain.PackageLog, error) {
	logs := r.Logs(packageID)
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

func (r *Packages) CreatePayment(_ context.Context, p *domain.PackagePayment) (*domain.PackagePayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	p.CreatedAt = time.Now()
	r.payments = append(r.payments, p)
	return p, nil
}

func (r *Packages) SumActivePayments(_ context.Context, packageID int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.ServicePackageID != nil && *p.ServicePackageID == packageID && p.VoidedAt == nil {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r *Packages) ListPayments(_ context.Context, packageID int64) ([]*domain.PackagePayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*domain.PackagePayment, 0)
	for _, p := range r.payments {
		if p.ServicePackageID != nil && *p.ServicePackageID == packageID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *Packages) GetPayment(_ context.Context, id int64) (*domain.PackagePayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, packageRepo.ErrPaymentNotFound
}

func (r *Packages) VoidPayment(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id && p.VoidedAt == nil {
			now := time.Now()
			p.VoidedAt = &now
			return nil
		}
	}
	return packageRepo.ErrPaymentNotFound
}
