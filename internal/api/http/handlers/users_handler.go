package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/streamhub/internal/api/dto"
	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/service"
)

// UsersHandler exposes signup, login and self-service endpoints for viewers.
type UsersHandler struct {
	registrations *service.RegistrationService
	access        *service.AccessService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(registrations *service.RegistrationService, access *service.AccessService) *UsersHandler {
	return &UsersHandler{registrations: registrations, access: access}
}

// Register handles POST /auth/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	requestID, err := h.registrations.Submit(c.UserContext(), service.RegistrationInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		ProfileName: req.ProfileName,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": dto.RegistrationAccepted{RequestID: requestID, Status: string(domain.RegistrationStatus)},
	})
}

// Login handles POST /auth/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.access.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":   dto.NewUserResponse(result.User),
			"access": dto.NewDecisionResponse(result.Decision),
			"auth":   dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}

// Me handles GET /me. The record is re-read so a stale session never
// outlives the entitlement.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, decision, err := h.access.Check(c.UserContext(), auth.CallerFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MeResponse{
		User:   dto.NewUserResponse(user),
		Access: dto.NewDecisionResponse(decision),
	}})
}
