package get_package

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

const (
	msgInvalidPackageID = "некорректный ID пакета"
	msgNotFound         = "пакет не найден"
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

// Handle GET /api/v1/packages/{packageId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	packageID, err := handlers.PathInt64(r, "packageId")
	if err != nil {
		h.logger.Warn("GET /packages/{id} - Invalid package ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPackageID)
		return
	}

	summary, err := h.ledger.Summary(r.Context(), packageID)
	if err != nil {
		h.respondError(w, packageID, err)
		return
	}
	history, err := h.ledger.History(r.Context(), packageID)
	if err != nil {
		h.respondError(w, packageID, err)
		return
	}

	h.logger.Info("GET /packages/{id} - Package retrieved successfully: package_id=%d, remaining=%d",
		packageID, summary.Package.Balance.Remaining())
	handlers.RespondJSON(w, http.StatusOK, FromSummary(summary, history))
}

func (h *Handler) respondError(w http.ResponseWriter, packageID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.logger.Warn("GET /packages/{id} - Package not found: package_id=%d", packageID)
		handlers.RespondNotFound(w, msgNotFound)

	default:
		h.logger.Error("GET /packages/{id} - Failed to get package: package_id=%d, error=%v", packageID, err)
		handlers.RespondDomainError(w, err)
	}
}
