package create_package

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
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

// Handle POST /api/v1/packages
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreatePackageRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("POST /packages - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	ledgerReq, err := req.ToLedgerRequest()
	if err != nil {
		h.logger.Warn("POST /packages - Failed to parse request: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	pkg, err := h.ledger.CreatePackage(r.Context(), ledgerReq)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("POST /packages - Failed to create package: user_id=%d, service_id=%d, error=%v",
				req.UserID, req.ServiceID, err)
		} else {
			h.logger.Warn("POST /packages - Rejected: user_id=%d, service_id=%d, error=%v", req.UserID, req.ServiceID, err)
		}
		return
	}

	h.logger.Info("POST /packages - Package created successfully: package_id=%d, user_id=%d, service_id=%d",
		pkg.ID, req.UserID, req.ServiceID)
	handlers.RespondJSON(w, http.StatusCreated, handlers.NewPackageResponse(pkg))
}
