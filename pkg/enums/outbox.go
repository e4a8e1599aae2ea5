package enums

import "fmt"

// OutboxAggregateType names the ledger entity an audit event is about.
type OutboxAggregateType string

const (
	AggregatePurchase OutboxAggregateType = "purchase"
	AggregateCustomer OutboxAggregateType = "customer"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePurchase,
	AggregateCustomer,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the audit event name forwarded to the audit collaborator.
type OutboxEventType string

const (
	EventPurchaseCreated       OutboxEventType = "purchase.created"
	EventPaymentApplied        OutboxEventType = "payment.applied"
	EventDeliveryStatusChanged OutboxEventType = "delivery.status_changed"
	EventWaybillIssued         OutboxEventType = "waybill.issued"
	EventPurchaseOverdue       OutboxEventType = "purchase.overdue"
	EventCollectorAssigned     OutboxEventType = "customer.collector_assigned"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPurchaseCreated,
	EventPaymentApplied,
	EventDeliveryStatusChanged,
	EventWaybillIssued,
	EventPurchaseOverdue,
	EventCollectorAssigned,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
