package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
)

// Actor is the authenticated staff member a ledger operation runs as.
type Actor struct {
	UserID uuid.UUID
	ShopID uuid.UUID
	Role   enums.StaffRole
}

// ActorFromClaims lifts verified token claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, ShopID: claims.ShopID, Role: claims.Role}
}

// Valid reports whether the actor carries both identity and shop scope.
func (a Actor) Valid() bool {
	return a.UserID != uuid.Nil && a.ShopID != uuid.Nil
}

// Ref renders the actor for audit envelopes.
func (a Actor) Ref() *outbox.ActorRef {
	shopID := a.ShopID
	return &outbox.ActorRef{UserID: a.UserID, ShopID: &shopID, Role: string(a.Role)}
}
