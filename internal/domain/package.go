package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PackageStatus lifecycle state of a prepaid package
type PackageStatus string

const (
	PackageActive    PackageStatus = "active"
	PackageExhausted PackageStatus = "exhausted"
	PackageUsed      PackageStatus = "used"
	PackageExpired   PackageStatus = "expired"
	PackageCancelled PackageStatus = "cancelled"
)

// ParsePackageStatus validates a raw package status
func ParsePackageStatus(s string) (PackageStatus, error) {
	switch st := PackageStatus(s); st {
	case PackageActive, PackageExhausted, PackageUsed, PackageExpired, PackageCancelled:
		return st, nil
	default:
		return "", NewValidationError("status", "unknown package status "+s)
	}
}

// BalanceKind which unit a package is counted in
type BalanceKind string

const (
	BalanceSessions BalanceKind = "sessions"
	BalanceMinutes  BalanceKind = "minutes"
)

// PackageBalance is either Sessions(total, remaining) or Minutes(total, remaining).
// The zero value is invalid; build it with SessionsBalance or MinutesBalance.
type PackageBalance struct {
	kind      BalanceKind
	total     int
	remaining int
}

// SessionsBalance builds a session-counted balance
func SessionsBalance(total, remaining int) PackageBalance {
	return PackageBalance{kind: BalanceSessions, total: total, remaining: remaining}
}

// MinutesBalance builds a minute-counted balance
func MinutesBalance(total, remaining int) PackageBalance {
	return PackageBalance{kind: BalanceMinutes, total: total, remaining: remaining}
}

// BalanceFromColumns maps the nullable storage pairs onto the sum type.
// Both or neither pair set is an invariant violation.
func BalanceFromColumns(packageID int64, totalSessions, remainingSessions, totalMinutes, remainingMinutes *int) (PackageBalance, error) {
	hasSessions := totalSessions != nil || remainingSessions != nil
	hasMinutes := totalMinutes != nil || remainingMinutes != nil

	switch {
	case hasSessions && hasMinutes:
		return PackageBalance{}, &InvariantViolationError{Entity: "service_package", ID: packageID, Detail: "both sessions and minutes balances are set"}
	case hasSessions:
		if totalSessions == nil || remainingSessions == nil {
			return PackageBalance{}, &InvariantViolationError{Entity: "service_package", ID: packageID, Detail: "sessions balance is half set"}
		}
		return SessionsBalance(*totalSessions, *remainingSessions), nil
	case hasMinutes:
		if totalMinutes == nil || remainingMinutes == nil {
			return PackageBalance{}, &InvariantViolationError{Entity: "service_package", ID: packageID, Detail: "minutes balance is half set"}
		}
		return MinutesBalance(*totalMinutes, *remainingMinutes), nil
	default:
		return PackageBalance{}, &InvariantViolationError{Entity: "service_package", ID: packageID, Detail: "neither sessions nor minutes balance is set"}
	}
}

func (b PackageBalance) Kind() BalanceKind { return b.kind }
func (b PackageBalance) Total() int { return b.total }
func (b PackageBalance) Remaining() int { return b.remaining }
func (b PackageBalance) IsSessions() bool { return b.kind == BalanceSessions }
func (b PackageBalance) IsMinutes() bool { return b.kind == BalanceMinutes }
func (b PackageBalance) IsValid() bool { return b.kind == BalanceSessions || b.kind == BalanceMinutes }

// Columns returns the storage representation: sessions pair, minutes pair; the unused pair is nil.
func (b PackageBalance) Columns() (totalSessions, remainingSessions, totalMinutes, remainingMinutes *int) {
	total, remaining := b.total, b.remaining
	if b.kind == BalanceSessions {
		return &total, &remaining, nil, nil
	}
	return nil, nil, &total, &remaining
}

// ServicePackage prepaid bundle of sessions or minutes for one service
type ServicePackage struct {
	ID          int64
	UserID      int64
	ServiceID   int64
	ServiceName string
	Balance     PackageBalance
	PriceTotal  decimal.Decimal
	Currency    string
	Status      PackageStatus
	StartsOn    *time.Time
	ExpiresOn   *time.Time
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive reports whether the package can be consumed
func (p *ServicePackage) IsActive() bool {
	return p.Status == PackageActive
}

// IsValidOn reports whether day falls inside the optional starts_on/expires_on window
func (p *ServicePackage) IsValidOn(day time.Time) bool {
	d := dateKey(day)
	if p.StartsOn != nil && d < dateKey(*p.StartsOn) {
		return false
	}
	if p.ExpiresOn != nil && d > dateKey(*p.ExpiresOn) {
		return false
	}
	return true
}

func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// DeductSessions strict deduction: the package must be sessions-counted, hold at least
// count sessions and be active. Reaching exactly zero marks the package exhausted.
func (p *ServicePackage) DeductSessions(count int) error {
	if count <= 0 {
		return NewValidationError("sessions", "must be positive")
	}
	if !p.Balance.IsSessions() {
		return NewValidationError("package_id", "package is not sessions-based")
	}
	if p.Balance.remaining < count {
		return &InsufficientBalanceError{
			PackageID: p.ID,
			Unit:      UnitSessions,
			Requested: decimal.NewFromInt(int64(count)),
			Remaining: decimal.NewFromInt(int64(p.Balance.remaining)),
		}
	}
	if !p.IsActive() {
		return NewValidationError("package_id", "package is not active")
	}

	p.Balance.remaining -= count
	if p.Balance.remaining == 0 {
		p.Status = PackageExhausted
	}
	return nil
}

// DeductMinutes permissive deduction: staff can always log usage, so the balance may go
// negative and the status is left untouched.
func (p *ServicePackage) DeductMinutes(minutes int) error {
	if minutes <= 0 {
		return NewValidationError("minutes", "must be positive")
	}
	if !p.Balance.IsMinutes() {
		return NewValidationError("package_id", "package is not minutes-based")
	}

	p.Balance.remaining -= minutes
	return nil
}

// Restore adds amount back to the balance and reactivates the package.
func (p *ServicePackage) Restore(amount int) {
	p.Balance.remaining += amount
	p.Status = PackageActive
}

// HasNegativeBalance reports a minutes package driven below zero
func (p *ServicePackage) HasNegativeBalance() bool {
	return p.Balance.IsMinutes() && p.Balance.remaining < 0
}

// CoversAppointment reports whether the balance can pay for one visit of the given length.
func (p *ServicePackage) CoversAppointment(durationMinutes int) bool {
	if p.Balance.IsSessions() {
		return p.Balance.remaining >= SessionsPerAppointment
	}
	return p.Balance.remaining >= durationMinutes
}

// PackageLog append-only ledger entry. Zero amounts mark restoration narratives.
type PackageLog struct {
	ID               int64
	ServicePackageID int64
	StaffID          *int64
	AppointmentID    *int64
	AppointmentRef   *string
	UsedSessions     *int
	UsedMinutes      *int
	UsedAt           time.Time
	Note             *string
	CreatedAt        time.Time
}

// Amount returns the consumed quantity regardless of unit
func (l *PackageLog) Amount() int {
	if l.UsedSessions != nil {
		return *l.UsedSessions
	}
	if l.UsedMinutes != nil {
		return *l.UsedMinutes
	}
	return 0
}

// PaymentMethod how a payment was taken
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentBank  PaymentMethod = "bank"
	PaymentOther PaymentMethod = "other"
)

// ParsePaymentMethod validates a raw payment method
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCash, PaymentCard, PaymentBank, PaymentOther:
		return m, nil
	default:
		return "", NewValidationError("method", "unknown payment method "+s)
	}
}

// PackagePayment money received against exactly one of a package or an appointment
type PackagePayment struct {
	ID               int64
	ServicePackageID *int64
	AppointmentID    *int64
	UserID           *int64
	StaffID          *int64
	Method           PaymentMethod
	Amount           decimal.Decimal
	Currency         string
	Notes            *string
	VoidedAt         *time.Time
	CreatedAt        time.Time
}

// HasSingleTarget reports whether exactly one billing target is set
func (p *PackagePayment) HasSingleTarget() bool {
	return (p.ServicePackageID == nil) != (p.AppointmentID == nil)
}

// PackageSummary package with derived money and balance figures
type PackageSummary struct {
	Package        *ServicePackage
	AmountPaid     decimal.Decimal
	RemainingToPay decimal.Decimal
	BalanceWarning bool
}
