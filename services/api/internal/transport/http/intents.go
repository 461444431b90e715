package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/app"
	"github.com/Sreshtha-portfolio-Projects/jewellery-ecommerce-sub000/services/api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// IntentService is the subset of app.IntentService the routes call.
type IntentService interface {
	CreateIntent(ctx context.Context, in app.CreateIntentInput) (app.CreateIntentResult, error)
	GetIntent(ctx context.Context, intentID, userID string) (app.IntentView, error)
	CancelIntent(ctx context.Context, intentID, userID string) (domain.OrderIntent, error)
}

type createIntentRequest struct {
	Items []struct {
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	ShippingAddressID string `json:"shipping_address_id"`
	BillingAddressID  string `json:"billing_address_id"`
	DiscountCode      string `json:"discount_code"`
}

type intentResponse struct {
	IntentID          string         `json:"intent_id"`
	IntentNumber      string         `json:"intent_number"`
	Status            string         `json:"status"`
	Items             []lineResponse `json:"items"`
	Subtotal          string         `json:"subtotal"`
	DiscountCode      string         `json:"discount_code,omitempty"`
	DiscountAmount    string         `json:"discount_amount"`
	TaxAmount         string         `json:"tax_amount"`
	ShippingCharge    string         `json:"shipping_charge"`
	TotalAmount       string         `json:"total_amount"`
	ShippingAddressID string         `json:"shipping_address_id"`
	BillingAddressID  string         `json:"billing_address_id"`
	OrderID           string         `json:"order_id,omitempty"`
	ExpiresAt         time.Time      `json:"expires_at"`
	CreatedAt         time.Time      `json:"created_at"`
	Locks             *lockSummary   `json:"locks,omitempty"`
}

type lineResponse struct {
	VariantID string `json:"variant_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type lockSummary struct {
	LockedQuantity int            `json:"locked_quantity"`
	ClosedQuantity int            `json:"released_quantity"`
	Lines          []lockResponse `json:"lines"`
}

type lockResponse struct {
	VariantID  string     `json:"variant_id"`
	Quantity   int        `json:"quantity"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

func newIntentResponse(intent domain.OrderIntent) intentResponse {
	lines := make([]lineResponse, 0, len(intent.Cart.Lines))
	for _, l := range intent.Cart.Lines {
		lines = append(lines, lineResponse{
			VariantID: l.VariantID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			LineTotal: l.Total().StringFixed(2),
		})
	}
	return intentResponse{
		IntentID:          intent.ID,
		IntentNumber:      intent.IntentNumber,
		Status:            string(intent.Status),
		Items:             lines,
		Subtotal:          intent.Subtotal.StringFixed(2),
		DiscountCode:      intent.DiscountCode,
		DiscountAmount:    intent.DiscountAmount.StringFixed(2),
		TaxAmount:         intent.TaxAmount.StringFixed(2),
		ShippingCharge:    intent.ShippingCharge.StringFixed(2),
		TotalAmount:       intent.TotalAmount.StringFixed(2),
		ShippingAddressID: intent.ShippingAddressID,
		BillingAddressID:  intent.BillingAddressID,
		OrderID:           intent.OrderID,
		ExpiresAt:         intent.ExpiresAt,
		CreatedAt:         intent.CreatedAt,
	}
}

func newLockSummary(s domain.LockSummary) *lockSummary {
	out := &lockSummary{
		LockedQuantity: s.LockedQuantity,
		ClosedQuantity: s.ClosedQuantity,
		Lines:          make([]lockResponse, 0, len(s.Locks)),
	}
	for _, l := range s.Locks {
		out.Lines = append(out.Lines, lockResponse{
			VariantID:  l.VariantID,
			Quantity:   l.Quantity,
			Status:     string(l.Status),
			ExpiresAt:  l.ExpiresAt,
			ReleasedAt: l.ReleasedAt,
		})
	}
	return out
}

// HandleCreateIntent returns 201 for a new intent and 200 when an active one was reused.
func HandleCreateIntent(svc IntentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, domain.ErrUserRequired.Error())
			return
		}

		var req createIntentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ShippingAddressID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "shipping_address_id is required")
			return
		}

		in := app.CreateIntentInput{
			UserID:            userID,
			Items:             make([]app.CartItem, 0, len(req.Items)),
			ShippingAddressID: req.ShippingAddressID,
			BillingAddressID:  req.BillingAddressID,
			DiscountCode:      req.DiscountCode,
		}
		for _, item := range req.Items {
			in.Items = append(in.Items, app.CartItem{VariantID: item.VariantID, Quantity: item.Quantity})
		}

		res, err := svc.CreateIntent(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		status := http.StatusCreated
		if res.Reused {
			status = http.StatusOK
		}
		resp := newIntentResponse(res.Intent)
		resp.Locks = newLockSummary(domain.SummarizeLocks(res.Locks))
		writeJSON(w, status, resp)
	}
}

func HandleGetIntent(svc IntentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, domain.ErrUserRequired.Error())
			return
		}

		view, err := svc.GetIntent(r.Context(), chi.URLParam(r, "intentID"), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := newIntentResponse(view.Intent)
		resp.Locks = newLockSummary(view.Locks)
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleCancelIntent(svc IntentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, domain.ErrUserRequired.Error())
			return
		}

		intent, err := svc.CancelIntent(r.Context(), chi.URLParam(r, "intentID"), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newIntentResponse(intent))
	}
}
