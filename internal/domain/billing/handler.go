package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/billing/internal/apperr"
	"github.com/clinicore/billing/internal/platform/auth"
	"github.com/clinicore/billing/pkg/pagination"
)

// UserDirectory resolves the authenticated username to a user id, for the
// patient-facing endpoints.
type UserDirectory interface {
	IDByUsername(ctx context.Context, username string) (uuid.UUID, error)
}

type Handler struct {
	svc   *Service
	users UserDirectory
}

func NewHandler(svc *Service, users UserDirectory) *Handler {
	return &Handler{svc: svc, users: users}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Specialist endpoints. GET /bills/:id also admits the owning patient.
	staff := api.Group("", auth.RequireRole(auth.RoleBillingSpecialist))
	staff.GET("/bills", h.ListBills)
	staff.PUT("/bills/:id/status", h.SetStatus)
	staff.POST("/bills/:id/payments", h.ApplyPayment)
	staff.DELETE("/bills/:id/payments/:paymentId", h.ReversePayment)

	shared := api.Group("", auth.RequireRole(auth.RoleBillingSpecialist, auth.RolePatient))
	shared.GET("/bills/:id", h.GetBill)

	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.GET("/mybills", h.ListMyBills)
}

func (h *Handler) ListBills(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListBillsByPatient(ctx, pid, pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.ListBills(ctx, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	b, err := h.svc.GetBill(ctx, id)
	if err != nil {
		return httpError(err)
	}
	// A patient without staff privileges may only see their own bill.
	roles := auth.RolesFromContext(ctx)
	if !auth.HasRole(roles, auth.RoleBillingSpecialist) {
		uid, err := h.users.IDByUsername(ctx, auth.UsernameFromContext(ctx))
		if err != nil {
			// An unknown account can own no bills; anything else is a
			// directory failure, not an ownership mismatch.
			if apperr.KindOf(err) == apperr.KindNotFound {
				return echo.NewHTTPError(http.StatusNotFound, "bill not found")
			}
			return httpError(err)
		}
		if b.PatientID != uid {
			return echo.NewHTTPError(http.StatusNotFound, "bill not found")
		}
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListMyBills(c echo.Context) error {
	ctx := c.Request().Context()
	uid, err := h.users.IDByUsername(ctx, auth.UsernameFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBillsByPatient(ctx, uid, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type setStatusRequest struct {
	Status BillStatus `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type applyPaymentRequest struct {
	Amount int           `json:"amount"`
	Method PaymentMethod `json:"method"`
}

func (h *Handler) ApplyPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req applyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.ApplyPayment(c.Request().Context(), id, req.Amount, req.Method)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ReversePayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	paymentID, err := uuid.Parse(c.Param("paymentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payment id")
	}
	b, err := h.svc.ReversePayment(c.Request().Context(), id, paymentID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

// httpError translates domain errors into HTTP responses by kind.
func httpError(err error) error {
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
}
