package handlers

import (
	"eventpass/internal/services"

	"github.com/lithammer/shortuuid/v3"
	"github.com/pocketbase/pocketbase/core"
)

const headerKeyCorrelationID = "Correlation-ID"

// CorrelationID tags the request context so notifications published while serving it carry the
// same id as the request.
func CorrelationID() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		correlationID := e.Request.Header.Get(headerKeyCorrelationID)
		if correlationID == "" {
			correlationID = "gen_" + shortuuid.New()
		}

		ctx := services.ContextWithCorrelationID(e.Request.Context(), correlationID)
		e.Request = e.Request.WithContext(ctx)
		e.Response.Header().Set(headerKeyCorrelationID, correlationID)

		return e.Next()
	}
}
