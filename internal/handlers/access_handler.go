package handlers

import (
	"context"
	"net/http"

	"eventpass/internal/services"
	"eventpass/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AccessManager interface {
	Create(ctx context.Context, actor services.Actor, label, password string) (*models.AccessPassword, error)
	List(ctx context.Context, actor services.Actor) ([]*models.AccessPassword, error)
	SetActive(ctx context.Context, actor services.Actor, id string, active bool) error
	Verify(ctx context.Context, password string) (*models.AccessPassword, error)
}

type AccessHandler struct {
	access AccessManager
}

func NewAccessHandler(access AccessManager) *AccessHandler {
	return &AccessHandler{access: access}
}

// Verify is public and rate-limited by the router.
func (h *AccessHandler) Verify(e *core.RequestEvent) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Password == "" {
		return apis.NewBadRequestError("Password required", nil)
	}

	match, err := h.access.Verify(e.Request.Context(), req.Password)
	if err != nil {
		return apiError(err)
	}
	if match == nil {
		return e.JSON(http.StatusOK, map[string]any{"valid": false})
	}
	return e.JSON(http.StatusOK, map[string]any{"valid": true, "label": match.Label})
}

type createAccessRequest struct {
	Label    string `json:"label"`
	Password string `json:"password"`
}

func (r createAccessRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Label, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
	)
}

func (h *AccessHandler) Create(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}

	var req createAccessRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := req.Validate(); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	p, err := h.access.Create(e.Request.Context(), actor, req.Label, req.Password)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, p)
}

func (h *AccessHandler) List(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}

	list, err := h.access.List(e.Request.Context(), actor)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, list)
}

func (h *AccessHandler) SetActive(e *core.RequestEvent) error {
	actor, err := actorFrom(e)
	if err != nil {
		return err
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	id := e.Request.PathValue("id")
	if err := h.access.SetActive(e.Request.Context(), actor, id, req.Active); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"id": id, "active": req.Active})
}
