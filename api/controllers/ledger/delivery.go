package ledger

import (
	"net/http"
	"time"

	"github.com/angelmondragon/hirepurchase-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/hirepurchase-backend/api/responses"
	"github.com/angelmondragon/hirepurchase-backend/api/validators"
	"github.com/angelmondragon/hirepurchase-backend/internal/delivery"
	"github.com/angelmondragon/hirepurchase-backend/internal/waybills"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/logger"
)

type deliveryRequest struct {
	Status        string     `json:"status" validate:"required"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
}

// SetDeliveryStatus moves the purchase through the delivery state machine.
func SetDeliveryStatus(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
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

		var payload deliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseDeliveryStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status").
				WithDetails(map[string]any{"field": "status"}))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPurchaseID(ctx, purchaseID.String())
		}
		purchase, err := svc.Transition(ctx, actor, delivery.TransitionInput{
			PurchaseID:    purchaseID,
			Status:        status,
			ScheduledDate: payload.ScheduledDate,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPurchaseView(*purchase))
	}
}

type issueWaybillRequest struct {
	RecipientName       *string `json:"recipient_name,omitempty" validate:"omitempty,max=200"`
	RecipientPhone      *string `json:"recipient_phone,omitempty" validate:"omitempty,max=40"`
	DeliveryAddress     *string `json:"delivery_address,omitempty" validate:"omitempty,max=500"`
	DeliveryCity        *string `json:"delivery_city,omitempty" validate:"omitempty,max=120"`
	DeliveryRegion      *string `json:"delivery_region,omitempty" validate:"omitempty,max=120"`
	SpecialInstructions *string `json:"special_instructions,omitempty" validate:"omitempty,max=1000"`
}

type issueWaybillResponse struct {
	Waybill        waybillView          `json:"waybill"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
}

// IssueWaybill issues the single waybill a purchase may carry.
func IssueWaybill(svc waybills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "waybill service unavailable"))
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

		var payload issueWaybillRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPurchaseID(ctx, purchaseID.String())
		}
		result, err := svc.Issue(ctx, actor, waybills.IssueInput{
			PurchaseID:          purchaseID,
			RecipientName:       payload.RecipientName,
			RecipientPhone:      payload.RecipientPhone,
			DeliveryAddress:     payload.DeliveryAddress,
			DeliveryCity:        payload.DeliveryCity,
			DeliveryRegion:      payload.DeliveryRegion,
			SpecialInstructions: payload.SpecialInstructions,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issueWaybillResponse{
			Waybill:        toWaybillView(result.Waybill),
			DeliveryStatus: result.DeliveryStatus,
		})
	}
}

// GetWaybill returns the purchase's waybill.
func GetWaybill(svc waybills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "waybill service unavailable"))
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

		waybill, err := svc.Get(r.Context(), actor.ShopID, purchaseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWaybillView(*waybill))
	}
}
