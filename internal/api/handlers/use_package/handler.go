package use_package

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
)

const (
	msgInvalidPackageID = "некорректный ID пакета"
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

// Handle POST /api/v1/packages/{packageId}/use
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	packageID, err := handlers.PathInt64(r, "packageId")
	if err != nil {
		h.logger.Warn("POST /packages/{id}/use - Invalid package ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPackageID)
		return
	}

	var req UsePackageRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("POST /packages/{id}/use - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	pkg, err := h.ledger.UseManually(r.Context(), req.ToLedgerRequest(packageID))
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("POST /packages/{id}/use - Failed to use package: package_id=%d, error=%v", packageID, err)
		} else {
			h.logger.Warn("POST /packages/{id}/use - Rejected: package_id=%d, amount=%d, error=%v", packageID, req.Amount, err)
		}
		return
	}

	h.logger.Info("POST /packages/{id}/use - Package used successfully: package_id=%d, amount=%d, remaining=%d",
		packageID, req.Amount, pkg.Balance.Remaining())
	handlers.RespondJSON(w, http.StatusOK, handlers.NewPackageResponse(pkg))
}
