package get_user_packages

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
)

const (
	msgInvalidUserID = "некорректный ID пользователя"
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

// Handle GET /api/v1/users/{userId}/packages
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, err := handlers.PathInt64(r, "userId")
	if err != nil {
		h.logger.Warn("GET /users/{userId}/packages - Invalid user ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidUserID)
		return
	}

	// Получаем status из query параметров (опционально)
	var status *string
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = &raw
	}

	list, err := h.ledger.ListForUser(r.Context(), userID, status)
	if err != nil {
		if code := handlers.RespondDomainError(w, err); code >= http.StatusInternalServerError {
			h.logger.Error("GET /users/{userId}/packages - Failed to get packages: user_id=%d, error=%v", userID, err)
		} else {
			h.logger.Warn("GET /users/{userId}/packages - Rejected: user_id=%d, error=%v", userID, err)
		}
		return
	}

	h.logger.Info("GET /users/{userId}/packages - Packages retrieved successfully: user_id=%d, count=%d",
		userID, len(list))
	handlers.RespondJSON(w, http.StatusOK, FromSummaries(list))
}
