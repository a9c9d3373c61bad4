package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

// UserFinder looks up a login by username.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// AuthHandler issues access tokens for seeded users.
type AuthHandler struct {
	users        UserFinder
	jwtSecret    string
	accessTTLMin int
}

func NewAuthHandler(users UserFinder, jwtSecret string, accessTTLMin int) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, accessTTLMin: accessTTLMin}
}

type loginReq struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// Login verifies the password and returns a signed access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)

	ctx, cancel := requestCtx(c, defaultTimeout)
	defer cancel()

	u, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return writeError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.jwtSecret, u.Username, u.Role, h.accessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		User:   userPart{Username: u.Username, Role: u.Role},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
