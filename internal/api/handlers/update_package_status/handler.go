package update_package_status

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
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

// Handle PATCH /api/v1/packages/{packageId}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	packageID, err := handlers.PathInt64(r, "packageId")
	if err != nil {
		h.logger.Warn("PATCH /packages/{id}/status - Invalid package ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPackageID)
		return
	}

	var req UpdateStatusRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("PATCH /packages/{id}/status - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	pkg, err := h.ledger.SetStatus(r.Context(), packageID, domain.PackageStatus(req.Status))
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("PATCH /packages/{id}/status - Failed to set status: package_id=%d, error=%v", packageID, err)
		} else {
			h.logger.Warn("PATCH /packages/{id}/status - Rejected: package_id=%d, status=%s, error=%v", packageID, req.Status, err)
		}
		return
	}

	h.logger.Info("PATCH /packages/{id}/status - Status updated successfully: package_id=%d, status=%s", packageID, pkg.Status)
	handlers.RespondJSON(w, http.StatusOK, handlers.NewPackageResponse(pkg))
}
