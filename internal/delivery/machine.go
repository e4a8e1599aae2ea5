package delivery

import (
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
)

const (
	ReasonIllegalTransition = "illegal_transition"
	ReasonWaybillRequired   = "waybill_required"
)

// CheckTransition reports whether a purchase may move from current to
// requested. hasWaybill gates SCHEDULED -> IN_TRANSIT.
func CheckTransition(current, requested enums.DeliveryStatus, hasWaybill bool) error {
	if !requested.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery status").
			WithDetails(map[string]any{"requested": string(requested)})
	}
	if current.IsTerminal() {
		return illegal(current, requested)
	}

	switch requested {
	case enums.DeliveryStatusPending:
		return illegal(current, requested)
	case enums.DeliveryStatusScheduled:
		switch current {
		case enums.DeliveryStatusPending, enums.DeliveryStatusScheduled, enums.DeliveryStatusFailed:
			return nil
		}
		return illegal(current, requested)
	case enums.DeliveryStatusInTransit:
		if current != enums.DeliveryStatusScheduled {
			return illegal(current, requested)
		}
		if !hasWaybill {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a waybill must be issued before dispatch").
				WithDetails(map[string]any{
					"reason":    ReasonWaybillRequired,
					"current":   string(current),
					"requested": string(requested),
				})
		}
		return nil
	case enums.DeliveryStatusDelivered:
		return nil
	case enums.DeliveryStatusFailed:
		if current == enums.DeliveryStatusFailed {
			return illegal(current, requested)
		}
		return nil
	default:
		return illegal(current, requested)
	}
}

// AdvanceOnWaybill returns the status a purchase takes when its waybill is
// issued. Only PENDING moves, to SCHEDULED.
func AdvanceOnWaybill(current enums.DeliveryStatus) (enums.DeliveryStatus, bool) {
	if current == enums.DeliveryStatusPending {
		return enums.DeliveryStatusScheduled, true
	}
	return current, false
}

func illegal(current, requested enums.DeliveryStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery transition not allowed").
		WithDetails(map[string]any{
			"reason":    ReasonIllegalTransition,
			"current":   string(current),
			"requested": string(requested),
		})
}
