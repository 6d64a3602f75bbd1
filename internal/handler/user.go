package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-lot/internal/model"
	"github.com/iliyamo/parking-lot/internal/repository"
	"github.com/iliyamo/parking-lot/internal/service"
	"github.com/iliyamo/parking-lot/internal/utils"
)

// UserStore is the persistence used by UserHandler.
type UserStore interface {
	Create(ctx context.Context, p repository.CreateUserParams, cost int) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id uint64, p repository.UserPatch, cost int) error
}

// UserHandler serves /users.  Passwords are hashed with BcryptCost and
// never returned.
type UserHandler struct {
	Users      UserStore
	BcryptCost int
	Log        logrus.FieldLogger
}

func NewUserHandler(users UserStore, bcryptCost int, log logrus.FieldLogger) *UserHandler {
	if users == nil {
		panic("nil store passed to NewUserHandler")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UserHandler{Users: users, BcryptCost: bcryptCost, Log: log}
}

type createUserRequest struct {
	Name     string `json:"user_name" validate:"required,max=100"`
	Email    string `json:"user_email" validate:"required,max=255"`
	Password string `json:"user_password" validate:"required,password"`
	PhoneNo  string `json:"user_phone_no" validate:"required,max=20"`
	Address  string `json:"user_address" validate:"required,max=255"`
}

type updateUserRequest struct {
	Name     *string `json:"user_name" validate:"omitnil,min=1,max=100"`
	Email    *string `json:"user_email" validate:"omitnil,min=1,max=255"`
	Password *string `json:"user_password" validate:"omitnil,password"`
	PhoneNo  *string `json:"user_phone_no" validate:"omitnil,min=1,max=20"`
	Address  *string `json:"user_address" validate:"omitnil,min=1,max=255"`
}

func trimPtr(p *string) {
	if p != nil {
		*p = strings.TrimSpace(*p)
	}
}

// userError translates repository and hashing sentinels into service
// errors.
func userError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return service.ErrUserNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return service.ErrEmailExists
	case errors.Is(err, utils.ErrEmptyPassword), errors.Is(err, utils.ErrPasswordTooLong):
		return service.ErrInvalidPassword
	}
	return err
}

// List handles GET /users.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, userError(err))
	}
	return c.JSON(http.StatusOK, u)
}

// Create handles POST /users.  All five fields are required; returns 201
// with the new id.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.PhoneNo = strings.TrimSpace(req.PhoneNo)
	req.Address = strings.TrimSpace(req.Address)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	id, err := h.Users.Create(c.Request().Context(), repository.CreateUserParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		PhoneNo:  req.PhoneNo,
		Address:  req.Address,
	}, h.BcryptCost)
	if err != nil {
		return respondError(c, h.Log, userError(err))
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User created successfully", "user_id": id})
}

// Update handles PUT /users/:id.  Omitted fields keep their stored value.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	trimPtr(req.Name)
	trimPtr(req.Email)
	trimPtr(req.PhoneNo)
	trimPtr(req.Address)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	err := h.Users.Update(c.Request().Context(), id, repository.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		PhoneNo:  req.PhoneNo,
		Address:  req.Address,
	}, h.BcryptCost)
	if err != nil {
		return respondError(c, h.Log, userError(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully"})
}
