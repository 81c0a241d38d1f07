package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// UsersHandler exposes auth endpoints for end-users.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	principal, err := h.auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	return c.Status(http.StatusCreated).JSON(dto.UserResponse{
		ID:    principal.ID,
		Email: principal.Identity,
		Role:  string(principal.Role),
	})
}

// Login handles POST /api/auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	_, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(dto.AuthResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: exp})
}

// Me handles GET /api/auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	cred, err := h.auth.Profile(c.UserContext(), principal.Identity)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(dto.UserResponse{ID: cred.ID, Email: cred.Identity, Role: string(cred.Role)})
}

// Verify handles GET /api/auth/verify and echoes the verified claims.
func (h *UsersHandler) Verify(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	resp := dto.ClaimsResponse{
		Subject:   claims.Subject,
		Role:      string(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		TokenID:   claims.ID,
	}
	if claims.IssuedAt != nil {
		iat := claims.IssuedAt.Time.UTC()
		resp.IssuedAt = &iat
	}
	return c.JSON(resp)
}

// CreateUser handles POST /api/auth/admin/users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := parse(c, &req); err != nil {
		return err
	}

	cred, err := h.auth.CreateUser(c.UserContext(), req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		return mapAuthError(err)
	}

	return c.Status(http.StatusCreated).JSON(dto.UserResponse{
		ID:    cred.ID,
		Email: cred.Identity,
		Role:  string(cred.Role),
	})
}

func parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}
