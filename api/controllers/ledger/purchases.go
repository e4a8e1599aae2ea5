package ledger

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hirepurchase-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/hirepurchase-backend/api/responses"
	"github.com/angelmondragon/hirepurchase-backend/api/validators"
	"github.com/angelmondragon/hirepurchase-backend/internal/pricing"
	internalpurchases "github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/logger"
	"github.com/angelmondragon/hirepurchase-backend/pkg/pagination"
)

type purchaseItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type createPurchaseRequest struct {
	CustomerID        uuid.UUID             `json:"customer_id" validate:"required"`
	PurchaseType      string                `json:"purchase_type" validate:"required"`
	Items             []purchaseItemRequest `json:"items" validate:"required,min=1,dive"`
	DownPayment       *decimal.Decimal      `json:"down_payment,omitempty"`
	DownPaymentMethod string                `json:"down_payment_method,omitempty"`
	TenorDays         int                   `json:"tenor_days" validate:"required,min=1"`
	Installments      *int                  `json:"installments,omitempty" validate:"omitempty,min=1,ltefield=TenorDays"`
	DeliveryAddress   *string               `json:"delivery_address,omitempty" validate:"omitempty,max=500"`
}

func (r createPurchaseRequest) toInput() (internalpurchases.CreateInput, error) {
	purchaseType, err := enums.ParsePurchaseType(r.PurchaseType)
	if err != nil {
		return internalpurchases.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase type").
			WithDetails(map[string]any{"field": "purchase_type"})
	}
	var method enums.PaymentMethod
	if strings.TrimSpace(r.DownPaymentMethod) != "" {
		method, err = enums.ParsePaymentMethod(r.DownPaymentMethod)
		if err != nil {
			return internalpurchases.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid down payment method").
				WithDetails(map[string]any{"field": "down_payment_method"})
		}
	}

	input := internalpurchases.CreateInput{
		CustomerID:        r.CustomerID,
		PurchaseType:      purchaseType,
		DownPayment:       decimal.Zero,
		DownPaymentMethod: method,
		TenorDays:         r.TenorDays,
		Installments:      r.Installments,
	}
	if r.DownPayment != nil {
		input.DownPayment = *r.DownPayment
	}
	if r.DeliveryAddress != nil {
		address := validators.SanitizeString(*r.DeliveryAddress, 500)
		if address != "" {
			input.DeliveryAddress = &address
		}
	}
	input.Items = make([]internalpurchases.ItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		input.Items = append(input.Items, internalpurchases.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return input, nil
}

type createPurchaseResponse struct {
	Purchase purchaseView          `json:"purchase"`
	Schedule []pricing.Installment `json:"schedule"`
}

// CreatePurchase records a sale: tier pricing, stock decrement and the
// purchase row in one transaction.
func CreatePurchase(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}

		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPurchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithPurchaseID(r.Context(), result.Purchase.ID.String())
			logg.Info(ctx, "purchase.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createPurchaseResponse{
			Purchase: toPurchaseView(*result.Purchase),
			Schedule: result.Schedule,
		})
	}
}

// ListPurchases pages through the shop's purchases, newest first.
func ListPurchases(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}

		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := internalpurchases.ListFilters{Params: params}

		if filters.CustomerID, err = validators.ParseQueryUUID(r, "customer_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePurchaseStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			filters.Status = &status
		}

		list, err := svc.List(r.Context(), actor.ShopID, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPurchaseListView(list.Purchases, list.NextCursor))
	}
}

// PurchaseDetail returns a purchase with its items, payments and installment plan.
func PurchaseDetail(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
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

		detail, err := svc.Get(r.Context(), actor.ShopID, purchaseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, purchaseDetailView{
			Purchase: toPurchaseView(detail.Purchase),
			Payments: toPaymentViews(detail.Payments),
			Schedule: detail.Schedule,
		})
	}
}

// CollectorPurchases lists open purchases of customers assigned to the caller.
func CollectorPurchases(svc internalpurchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}

		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForCollector(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPurchaseListView(list.Purchases, list.NextCursor))
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
