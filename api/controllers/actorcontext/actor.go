package actorcontext

import (
	"net/http"

	"github.com/angelmondragon/hirepurchase-backend/api/middleware"
	"github.com/angelmondragon/hirepurchase-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
)

// Resolve extracts the authenticated actor and its shop scope.
func Resolve(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	return actor, nil
}
