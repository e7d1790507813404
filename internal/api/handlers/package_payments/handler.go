package package_payments

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/api/middleware"
)

const (
	msgInvalidPackageID = "некорректный ID пакета"
	msgInvalidPaymentID = "некорректный ID платежа"
)

type Handler struct {
	ledger PackageLedger
	logger Logger
}

func NewHandler(ledger PackageLedger, logger Logger) *Handler {
	return &Handler{
		ledger: ledger,
		logger: logger,
	}
}

// HandleRecord POST /api/v1/packages/{packageId}/payments
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	packageID, err := handlers.PathInt64(r, "packageId")
	if err != nil {
		h.logger.Warn("POST /packages/{id}/payments - Invalid package ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPackageID)
		return
	}

	var req RecordPaymentRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("POST /packages/{id}/payments - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	ledgerReq, err := req.ToLedgerRequest(packageID, middleware.ActorID(r.Context()))
	if err != nil {
		h.logger.Warn("POST /packages/{id}/payments - Invalid method: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	payment, err := h.ledger.RecordPayment(r.Context(), ledgerReq)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("POST /packages/{id}/payments - Failed to record payment: package_id=%d, error=%v", packageID, err)
		} else {
			h.logger.Warn("POST /packages/{id}/payments - Rejected: package_id=%d, amount=%s, error=%v",
				packageID, req.Amount.String(), err)
		}
		return
	}

	h.logger.Info("POST /packages/{id}/payments - Payment recorded successfully: package_id=%d, payment_id=%d",
		packageID, payment.ID)
	handlers.RespondJSON(w, http.StatusCreated, handlers.NewPaymentResponse(payment))
}

// HandleVoid DELETE /api/v1/packages/{packageId}/payments/{paymentId}
func (h *Handler) HandleVoid(w http.ResponseWriter, r *http.Request) {
	packageID, err := handlers.PathInt64(r, "packageId")
	if err != nil {
		h.logger.Warn("DELETE /packages/{id}/payments/{id} - Invalid package ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPackageID)
		return
	}
	paymentID, err := handlers.PathInt64(r, "paymentId")
	if err != nil {
		h.logger.Warn("DELETE /packages/{id}/payments/{id} - Invalid payment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPaymentID)
		return
	}

	if err := h.ledger.VoidPayment(r.Context(), packageID, paymentID); err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("DELETE /packages/{id}/payments/{id} - Failed to void payment: package_id=%d, payment_id=%d, error=%v",
				packageID, paymentID, err)
		} else {
			h.logger.Warn("DELETE /packages/{id}/payments/{id} - Rejected: package_id=%d, payment_id=%d, error=%v",
				packageID, paymentID, err)
		}
		return
	}

	h.logger.Info("DELETE /packages/{id}/payments/{id} - Payment voided successfully: package_id=%d, payment_id=%d",
		packageID, paymentID)
	handlers.RespondNoContent(w)
}
