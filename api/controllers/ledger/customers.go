package ledger

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/hirepurchase-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/hirepurchase-backend/api/responses"
	"github.com/angelmondragon/hirepurchase-backend/api/validators"
	"github.com/angelmondragon/hirepurchase-backend/internal/customers"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/logger"
)

// A null collector_id clears the assignment.
type assignCollectorRequest struct {
	CollectorID *uuid.UUID `json:"collector_id"`
}

// AssignCollector sets or clears the collector responsible for a customer.
func AssignCollector(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}

		actor, err := actorcontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignCollectorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.AssignCollector(r.Context(), actor, customerID, payload.CollectorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customerView{
			ID:                  customer.ID,
			Name:                customer.Name,
			Phone:               customer.Phone,
			AssignedCollectorID: customer.AssignedCollectorID,
		})
	}
}
