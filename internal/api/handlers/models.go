package handlers

import (
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// AppointmentResponse HTTP модель записи на приём
type AppointmentResponse struct {
	ID               int64   `json:"id"`
	ReferenceCode    string  `json:"referenceCode"`
	ServiceID        int64   `json:"serviceId"`
	StaffID          *int64  `json:"staffId,omitempty"`
	UserID           *int64  `json:"userId,omitempty"`
	ServicePackageID *int64  `json:"servicePackageId,omitempty"`
	Date             string  `json:"date"`
	StartTime        string  `json:"startTime"`
	EndTime          string  `json:"endTime"`
	DurationMinutes  int     `json:"durationMinutes"`
	Price            string  `json:"price"`
	Status           string  `json:"status"`
	CustomerName     *string `json:"customerName,omitempty"`
	CustomerPhone    *string `json:"customerPhone,omitempty"`
	CustomerEmail    *string `json:"customerEmail,omitempty"`
	Notes            *string `json:"notes,omitempty"`
	AdminNotes       *string `json:"adminNotes,omitempty"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

// NewAppointmentResponse конвертирует доменную запись в HTTP модель
func NewAppointmentResponse(a *domain.Appointment) *AppointmentResponse {
	end, _ := a.EndTime()
	return &AppointmentResponse{
		ID:               a.ID,
		ReferenceCode:    a.ReferenceCode,
		ServiceID:        a.ServiceID,
		StaffID:          a.StaffID,
		UserID:           a.UserID,
		ServicePackageID: a.ServicePackageID,
		Date:             a.Date.Format(domain.DateFormat),
		StartTime:        a.StartTime.String(),
		EndTime:          end.String(),
		DurationMinutes:  a.DurationMinutes,
		Price:            a.Price.StringFixed(2),
		Status:           string(a.Status),
		CustomerName:     a.CustomerName,
		CustomerPhone:    a.CustomerPhone,
		CustomerEmail:    a.CustomerEmail,
		Notes:            a.Notes,
		AdminNotes:       a.AdminNotes,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        a.UpdatedAt.Format(time.RFC3339),
	}
}

// EventResponse побочный эффект операции
type EventResponse struct {
	Type          string                 `json:"type"`
	AppointmentID int64                  `json:"appointmentId,omitempty"`
	PackageID     *int64                 `json:"packageId,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

func NewEventResponses(events []domain.Event) []EventResponse {
	result := make([]EventResponse, 0, len(events))
	for _, e := range events {
		result = append(result, EventResponse{
			Type:          string(e.Type),
			AppointmentID: e.AppointmentID,
			PackageID:     e.PackageID,
			Payload:       e.Payload,
		})
	}
	return result
}

// PackageResponse HTTP модель пакета услуг
type PackageResponse struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"userId"`
	ServiceID   int64   `json:"serviceId"`
	ServiceName string  `json:"serviceName,omitempty"`
	Kind        string  `json:"kind"`
	Total       int     `json:"total"`
	Remaining   int     `json:"remaining"`
	PriceTotal  string  `json:"priceTotal"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	StartsOn    *string `json:"startsOn,omitempty"`
	ExpiresOn   *string `json:"expiresOn,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// NewPackageResponse конвертирует доменный пакет в HTTP модель
func NewPackageResponse(p *domain.ServicePackage) *PackageResponse {
	return &PackageResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		ServiceID:   p.ServiceID,
		ServiceName: p.ServiceName,
		Kind:        string(p.Balance.Kind()),
		Total:       p.Balance.Total(),
		Remaining:   p.Balance.Remaining(),
		PriceTotal:  p.PriceTotal.StringFixed(2),
		Currency:    p.Currency,
		Status:      string(p.Status),
		StartsOn:    formatDate(p.StartsOn),
		ExpiresOn:   formatDate(p.ExpiresOn),
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

// PaymentResponse HTTP модель платежа
type PaymentResponse struct {
	ID               int64   `json:"id"`
	ServicePackageID *int64  `json:"servicePackageId,omitempty"`
	AppointmentID    *int64  `json:"appointmentId,omitempty"`
	UserID           *int64  `json:"userId,omitempty"`
	StaffID          *int64  `json:"staffId,omitempty"`
	Method           string  `json:"method"`
	Amount           string  `json:"amount"`
	Currency         string  `json:"currency"`
	Notes            *string `json:"notes,omitempty"`
	Voided           bool    `json:"voided"`
	CreatedAt        string  `json:"createdAt"`
}

func NewPaymentResponse(p *domain.PackagePayment) *PaymentResponse {
	return &PaymentResponse{
		ID:               p.ID,
		ServicePackageID: p.ServicePackageID,
		AppointmentID:    p.AppointmentID,
		UserID:           p.UserID,
		StaffID:          p.StaffID,
		Method:           string(p.Method),
		Amount:           p.Amount.StringFixed(2),
		Currency:         p.Currency,
		Notes:            p.Notes,
		Voided:           p.VoidedAt != nil,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateFormat)
	return &s
}
