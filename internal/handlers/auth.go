package handlers

import (
	"eventpass/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

const (
	adminsCollection = "admins"
	usersCollection  = "users"

	actorKey = "eventpass.actor"
)

// RequireAdmin resolves the calling staff member once and stores the actor on the request.
func RequireAdmin() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if e.Auth == nil {
			return apis.NewUnauthorizedError("Admin access required", nil)
		}
		if e.Auth.Collection().Name != adminsCollection {
			return apis.NewForbiddenError("Admin access required", nil)
		}

		actor := services.Actor{
			ID:    e.Auth.Id,
			Email: e.Auth.Email(),
			Role:  services.Role(e.Auth.GetString("role")),
		}
		if !actor.IsAdmin() {
			return apis.NewForbiddenError("Unknown staff role", nil)
		}

		e.Set(actorKey, actor)
		return e.Next()
	}
}

// RequireUser accepts any authenticated participant.
func RequireUser() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if e.Auth == nil || e.Auth.Collection().Name != usersCollection {
			return apis.NewUnauthorizedError("Login required", nil)
		}

		e.Set(actorKey, services.Actor{
			ID:    e.Auth.Id,
			Email: e.Auth.Email(),
			Role:  services.RoleParticipant,
		})
		return e.Next()
	}
}

// actorFrom returns the actor stored by RequireAdmin or RequireUser.
func actorFrom(e *core.RequestEvent) (services.Actor, error) {
	actor, ok := e.Get(actorKey).(services.Actor)
	if !ok {
		return services.Actor{}, apis.NewUnauthorizedError("Authentication required", nil)
	}
	return actor, nil
}
