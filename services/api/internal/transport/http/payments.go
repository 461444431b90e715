package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/app"
)

const webhookSecretHeader = "X-Webhook-Secret"

// Converter turns a paid intent into an order.
type Converter interface {
	Convert(ctx context.Context, in app.ConvertInput) (app.ConvertResult, error)
}

type paymentConfirmationRequest struct {
	IntentID         string `json:"intent_id"`
	PaymentReference string `json:"payment_reference"`
}

type orderResponse struct {
	OrderID          string    `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	IntentID         string    `json:"intent_id"`
	TotalAmount      string    `json:"total_amount"`
	PaymentReference string    `json:"payment_reference"`
	CreatedAt        time.Time `json:"created_at"`
}

// HandlePaymentConfirmation is called by the payment gateway once a charge settles.
// Replays of the same confirmation return the existing order with 200.
func HandlePaymentConfirmation(svc Converter, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		given := r.Header.Get(webhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid webhook secret")
			return
		}

		var req paymentConfirmationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.IntentID == "" || req.PaymentReference == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "intent_id and payment_reference are required")
			return
		}

		res, err := svc.Convert(r.Context(), app.ConvertInput{
			IntentID:         req.IntentID,
			PaymentReference: req.PaymentReference,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, orderResponse{
			OrderID:          res.Order.ID,
			OrderNumber:      res.Order.OrderNumber,
			IntentID:         res.Order.IntentID,
			TotalAmount:      res.Order.TotalAmount.StringFixed(2),
			PaymentReference: res.Order.PaymentReference,
			CreatedAt:        res.Order.CreatedAt,
		})
	}
}
