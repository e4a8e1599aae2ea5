package ledger

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hirepurchase-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/hirepurchase-backend/api/responses"
	"github.com/angelmondragon/hirepurchase-backend/api/validators"
	internalpayments "github.com/angelmondragon/hirepurchase-backend/internal/payments"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/logger"
)

type applyPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Method      string          `json:"method" validate:"required"`
	Reference   *string         `json:"reference,omitempty" validate:"omitempty,max=120"`
	Overpayment string          `json:"overpayment,omitempty"`
}

type applyPaymentResponse struct {
	Payment     paymentView      `json:"payment"`
	Purchase    purchaseView     `json:"purchase"`
	Overpayment *decimal.Decimal `json:"overpayment,omitempty"`
}

// ApplyPayment records a confirmed payment and recomputes the balance under a
// purchase row lock.
func ApplyPayment(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purchaseID, err := validators.ParseUUIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
				WithDetails(map[string]any{"field": "method"}))
			return
		}
		input := internalpayments.ApplyInput{
			PurchaseID: purchaseID,
			Amount:     payload.Amount,
			Method:     method,
		}
		if strings.TrimSpace(payload.Overpayment) != "" {
			policy, err := enums.ParseOverpaymentPolicy(payload.Overpayment)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid overpayment policy").
					WithDetails(map[string]any{"field": "overpayment"}))
				return
			}
			input.Overpayment = policy
		}
		if payload.Reference != nil {
			ref := validators.SanitizeString(*payload.Reference, 120)
			if ref != "" {
				input.Reference = &ref
			}
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPurchaseID(ctx, purchaseID.String())
		}
		result, err := svc.Apply(ctx, actor, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, applyPaymentResponse{
			Payment:     toPaymentView(result.Payment),
			Purchase:    toPurchaseView(result.Purchase),
			Overpayment: result.Overpayment,
		})
	}
}

// ListPayments returns the purchase's payments in confirmation order.
func ListPayments(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purchaseID, err := validators.ParseUUIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), actor.ShopID, purchaseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payments": toPaymentViews(rows)})
	}
}
