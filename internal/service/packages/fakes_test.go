package packages

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	catalogRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/catalog"
	packageRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/servicepackage"
	"github.com/m04kA/SMC-ClinicService/pkg/clock"
	"github.com/m04kA/SMC-ClinicService/pkg/logger"
	"github.com/m04kA/SMC-ClinicService/pkg/metrics"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeTx counts read-only transactions when readOnly is set
type fakeTx struct {
	readOnly *int
}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (t fakeTx) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.readOnly != nil {
		*t.readOnly++
	}
	return fn(ctx)
}

type fakeServices map[int64]*domain.Service

func (f fakeServices) GetService(_ context.Context, id int64) (*domain.Service, error) {
	s, ok := f[id]
	if !ok {
		return nil, catalogRepo.ErrServiceNotFound
	}
	return s, nil
}

type fakePackages struct {
	mu       sync.Mutex
	nextID   int64
	packages map[int64]domain.ServicePackage
	logs     []*domain.PackageLog
	payments []*domain.PackagePayment
}

func newFakePackages() *fakePackages {
	return &fakePackages{packages: make(map[int64]domain.ServicePackage)}
}

func (f *fakePackages) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakePackages) Create(_ context.Context, p *domain.ServicePackage) (*domain.ServicePackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	p.CreatedAt = testNow
	p.UpdatedAt = testNow
	f.packages[p.ID] = *p
	return p, nil
}

func (f *fakePackages) GetByID(_ context.Context, id int64) (*domain.ServicePackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packages[id]
	if !ok {
		return nil, packageRepo.ErrPackageNotFound
	}
	return &p, nil
}

func (f *fakePackages) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServicePackage, error) {
	return f.GetByID(ctx, id)
}

func (f *fakePackages) ListByUser(_ context.Context, userID int64, status *domain.PackageStatus) ([]*domain.ServicePackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*domain.ServicePackage, 0)
	for _, p := range f.packages {
		if p.UserID != userID || (status != nil && p.Status != *status) {
			continue
		}
		p := p
		result = append(result, &p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (f *fakePackages) FindOldestActiveWithSessions(_ context.Context, userID, serviceID int64, day time.Time) (*domain.ServicePackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *domain.ServicePackage
	for _, p := range f.packages {
		p := p
		if p.UserID != userID || p.ServiceID != serviceID || !p.IsActive() || !p.IsValidOn(day) {
			continue
		}
		if !p.Balance.IsSessions() || p.Balance.Remaining() <= 0 {
			continue
		}
		if best == nil || p.ID < best.ID {
			best = &p
		}
	}
	if best == nil {
		return nil, packageRepo.ErrPackageNotFound
	}
	return best, nil
}

func (f *fakePackages) UpdateBalance(_ context.Context, p *domain.ServicePackage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.packages[p.ID]; !ok {
		return packageRepo.ErrPackageNotFound
	}
	f.packages[p.ID] = *p
	return nil
}

func (f *fakePackages) UpdateStatus(_ context.Context, id int64, status domain.PackageStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packages[id]
	if !ok {
		return packageRepo.ErrPackageNotFound
	}
	p.Status = status
	f.packages[id] = p
	return nil
}

func (f *fakePackages) CreateLog(_ context.Context, l *domain.PackageLog) (*domain.PackageLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = f.id()
	l.CreatedAt = testNow
	f.logs = append(f.logs, l)
	return l, nil
}

func (f *fakePackages) LatestAppointmentLog(_ context.Context, packageID int64, appointmentID *int64, appointmentRef *string) (*domain.PackageLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.logs) - 1; i >= 0; i-- {
		l := f.logs[i]
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

func (f *fakePackages) ListLogs(_ context.Context, packageID int64) ([]*domain.PackageLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*domain.PackageLog, 0)
	for i := len(f.logs) - 1; i >= 0; i-- {
		if f.logs[i].ServicePackageID == packageID {
			result = append(result, f.logs[i])
		}
	}
	return result, nil
}

func (f *fakePackages) CreatePayment(_ context.Context, p *domain.PackagePayment) (*domain.PackagePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	p.CreatedAt = testNow
	f.payments = append(f.payments, p)
	return p, nil
}

func (f *fakePackages) SumActivePayments(_ context.Context, packageID int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, p := range f.payments {
		if p.ServicePackageID != nil && *p.ServicePackageID == packageID && p.VoidedAt == nil {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (f *fakePackages) ListPayments(_ context.Context, packageID int64) ([]*domain.PackagePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]*domain.PackagePayment, 0)
	for _, p := range f.payments {
		if p.ServicePackageID != nil && *p.ServicePackageID == packageID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePackages) GetPayment(_ context.Context, id int64) (*domain.PackagePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, packageRepo.ErrPaymentNotFound
}

func (f *fakePackages) VoidPayment(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ID == id && p.VoidedAt == nil {
			at := testNow
			p.VoidedAt = &at
			return nil
		}
	}
	return packageRepo.ErrPaymentNotFound
}

func newTestLedger(repo *fakePackages, services fakeServices) *Ledger {
	return newTestLedgerWithTx(repo, services, fakeTx{})
}

func newTestLedgerWithTx(repo *fakePackages, services fakeServices, tx fakeTx) *Ledger {
	return NewLedger(
		repo,
		services,
		tx,
		clock.Fixed{At: testNow},
		metrics.Noop{},
		logger.NewWithWriter(io.Discard, "error"),
		domain.DefaultCurrency,
	)
}
