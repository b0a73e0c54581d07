package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nivaas/property-system/internal/core/domain"
	"github.com/nivaas/property-system/internal/core/ports"
)

type UserHandler struct {
	authService ports.AuthService
	hierarchy   ports.HierarchyService
	users       ports.UserRepository
	permissions ports.PermissionService
}

func NewUserHandler(
	authService ports.AuthService,
	hierarchy ports.HierarchyService,
	users ports.UserRepository,
	permissions ports.PermissionService,
) *UserHandler {
	return &UserHandler{
		authService: authService,
		hierarchy:   hierarchy,
		users:       users,
		permissions: permissions,
	}
}

type createUserRequest struct {
	Email         string         `json:"email"          validate:"required,email"`
	Password      string         `json:"password"       validate:"omitempty,password"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone"          validate:"omitempty,phone"`
	RoleSlug      string         `json:"role_slug"      validate:"required,oneof=developer web_owner staff house_owner caretaker"`
	HouseLimit    *int           `json:"house_limit"    validate:"omitempty,min=0"`
	GenerateToken bool           `json:"generate_token"`
	Metadata      map[string]any `json:"metadata"`
}

type updateLimitsRequest struct {
	HouseLimit  *int     `json:"house_limit" validate:"omitempty,min=0"`
	Permissions []string `json:"permissions"`
}

// Create provisions an account on behalf of the authenticated user. A missing
// password is generated and returned once, in this response only.
func (h *UserHandler) Create(c echo.Context) error {
	creator, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.authService.CreateUserAccount(c.Request().Context(), creator.ID, ports.CreateUserInput{
		Email:         req.Email,
		Password:      req.Password,
		Name:          req.Name,
		Phone:         req.Phone,
		RoleSlug:      req.RoleSlug,
		HouseLimit:    req.HouseLimit,
		GenerateToken: req.GenerateToken,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateLimits updates quota settings for a user.
func (h *UserHandler) UpdateLimits(c echo.Context) error {
	var req updateLimitsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.authService.UpdateUserLimits(c.Request().Context(), c.Param("id"), ports.UserLimitsUpdate{
		HouseLimit:  req.HouseLimit,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Detail returns a user with their resolved effective permission set. For
// always-allow roles the resolved set understates actual access, so the
// bypass is reported explicitly for audit surfaces.
func (h *UserHandler) Detail(c echo.Context) error {
	user, err := h.users.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	permissions, err := h.permissions.Resolve(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user":         user,
		"permissions":  permissions,
		"always_allow": domain.AlwaysAllowRole(user.RoleSlug()),
	})
}

// Managed lists the users under the authenticated user in the creation
// hierarchy. Optional query param: role.
func (h *UserHandler) Managed(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	users, err := h.hierarchy.ManagedUsers(c.Request().Context(), user.ID, c.QueryParam("role"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}
