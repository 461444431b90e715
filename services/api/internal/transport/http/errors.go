package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
)

const (
	codeNotFound             = "not_found"
	codeMethodNotAllowed     = "method_not_allowed"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeUnauthorized         = "unauthorized"
	codeInvalidID            = "invalid_id"
	codeEmptyCart            = "empty_cart"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidAddress       = "invalid_address"
	codeVariantNotFound      = "variant_not_found"
	codeInvalidDiscountCode  = "invalid_discount_code"
	codeInsufficientStock    = "insufficient_stock"
	codeIntentAlreadyActive  = "intent_already_active"
	codeIntentNotFound       = "intent_not_found"
	codeInvalidTransition    = "invalid_transition"
	codeIntentNoLongerValid  = "intent_no_longer_valid"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	VariantID string `json:"variant_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps service errors onto a status and a stable code.
// Anything unrecognised is a 500 without the error text.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:     stockErr.Error(),
			Code:      codeInsufficientStock,
			VariantID: stockErr.VariantID,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrUserRequired):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, codeEmptyCart, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, codeInvalidAddress, err.Error())
	case errors.Is(err, domain.ErrVariantNotFound):
		writeError(w, http.StatusBadRequest, codeVariantNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidDiscountCode):
		writeError(w, http.StatusBadRequest, codeInvalidDiscountCode, err.Error())
	case errors.Is(err, domain.ErrIntentAlreadyActive):
		writeError(w, http.StatusConflict, codeIntentAlreadyActive, err.Error())
	case errors.Is(err, domain.ErrIntentNotFound):
		writeError(w, http.StatusNotFound, codeIntentNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrIntentNoLongerValid):
		writeError(w, http.StatusConflict, codeIntentNoLongerValid, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
