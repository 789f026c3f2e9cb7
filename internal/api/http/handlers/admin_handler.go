package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/streamhub/internal/api/dto"
	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/service"
	apperrors "github.com/spec-kit/streamhub/pkg/util/errorutil"
)

// AdminHandler exposes the back office: admin login, registration review,
// entitlement management and maintenance.
type AdminHandler struct {
	auth        *service.AuthService
	approval    *service.ApprovalService
	maintenance *service.MaintenanceService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, approval *service.ApprovalService, maintenance *service.MaintenanceService) *AdminHandler {
	return &AdminHandler{auth: authService, approval: approval, maintenance: maintenance}
}

// Login handles POST /auth/admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	admin, token, exp, err := h.auth.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"admin": dto.AdminResponse{ID: admin.ID, Email: admin.Email, CreatedAt: admin.CreatedAt},
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// ListRegistrations GET /admin/registrations.
func (h *AdminHandler) ListRegistrations(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	reqs, err := h.approval.ListPendingRegistrations(c.UserContext(), auth.CallerFromContext(c), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.RegistrationResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, dto.NewRegistrationResponse(&reqs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Approve POST /admin/registrations/:id/approve.
func (h *AdminHandler) Approve(c *fiber.Ctx) error {
	var req dto.ApproveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	start, end, err := parseWindow(req.AccessWindowRequest)
	if err != nil {
		return err
	}

	user, err := h.approval.Approve(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), service.ApproveInput{
		AccessStartDate: start,
		AccessEndDate:   end,
		ApprovedBy:      req.ApprovedBy,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Reject POST /admin/registrations/:id/reject.
func (h *AdminHandler) Reject(c *fiber.Ctx) error {
	if err := h.approval.Reject(c.UserContext(), auth.CallerFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListUsers GET /admin/users?status=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var status *domain.EntitlementStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := domain.ParseEntitlementStatus(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		status = &parsed
	}

	limit, offset := pagination(c)
	users, err := h.approval.ListUsers(c.UserContext(), auth.CallerFromContext(c), status, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(users)})
}

// ListExpired GET /admin/users/expired.
func (h *AdminHandler) ListExpired(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	users, err := h.approval.ListExpiredUsers(c.UserContext(), auth.CallerFromContext(c), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(users)})
}

// UpdateAccess PUT /admin/users/:id/access.
func (h *AdminHandler) UpdateAccess(c *fiber.Ctx) error {
	var req dto.AccessWindowRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	start, end, err := parseWindow(req)
	if err != nil {
		return err
	}

	user, err := h.approval.UpdateAccessWindow(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), start, end)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Revoke POST /admin/users/:id/revoke.
func (h *AdminHandler) Revoke(c *fiber.Ctx) error {
	user, err := h.approval.RevokeAccess(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Restore POST /admin/users/:id/restore.
func (h *AdminHandler) Restore(c *fiber.Ctx) error {
	user, err := h.approval.RestoreAccess(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteUser DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.approval.DeleteUser(c.UserContext(), auth.CallerFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Sweep POST /admin/maintenance/sweep.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	result, err := h.maintenance.Run(c.UserContext(), auth.CallerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SweepResponse{Expired: result.Expired, Reconciled: result.Reconciled}})
}

func parseWindow(req dto.AccessWindowRequest) (start, end time.Time, err error) {
	if start, err = parseDate("access_start_date", req.AccessStartDate); err != nil {
		return
	}
	end, err = parseDate("access_end_date", req.AccessEndDate)
	return
}

func userResponses(users []domain.User) []dto.UserResponse {
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return items
}
