package httpx

import (
	"errors"
	"net/http"

	"github.com/corebox-crm/corebox/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Every
// precondition failure surfaces before any write, so a 4xx here implies no
// partial state was persisted.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidInvoiceState):
		Problem(w, http.StatusBadRequest, "Invalid Invoice State", err.Error())
	case errors.Is(err, shared.ErrInvoiceMismatch):
		Problem(w, http.StatusBadRequest, "Invoice Mismatch", err.Error())
	case errors.Is(err, shared.ErrNothingToBill):
		Problem(w, http.StatusBadRequest, "Nothing To Bill", err.Error())
	case errors.Is(err, shared.ErrUnsupportedDuration):
		Problem(w, http.StatusBadRequest, "Unsupported Duration", err.Error())
	case errors.Is(err, shared.ErrRateNotConfigured):
		Problem(w, http.StatusBadRequest, "Rate Not Configured", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
