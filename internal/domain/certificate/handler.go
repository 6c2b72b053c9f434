package certificate

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/billing/internal/apperr"
	"github.com/clinicore/billing/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.GET("/billcertificate", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	cert, err := h.svc.Build(ctx, auth.UsernameFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, cert)
}
