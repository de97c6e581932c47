package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openvenue/bartab/internal/store"
	"github.com/openvenue/bartab/internal/utils"
)

// AuthHandler signs staff terminals in.  Patron devices never authenticate
// here; they hold the opaque patron key issued at QR scan.
type AuthHandler struct {
	Staff     store.StaffStore
	JWTSecret string
	TTLMin    int
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(staff store.StaffStore, secret string, ttlMin int) *AuthHandler {
	return &AuthHandler{Staff: staff, JWTSecret: secret, TTLMin: ttlMin}
}

// Login handles POST /v1/auth/login.  On valid credentials it returns a
// bearer token carrying the staff, venue and role claims.
func (h *AuthHandler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil || body.Email == "" || body.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	s, err := h.Staff.StaffByEmail(c.Request().Context(), body.Email)
	if err != nil {
		if errors.Is(err, store.ErrStaffNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return writeError(c, err)
	}
	if !utils.CheckPassword(s.PasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tok, err := utils.NewAccessToken(h.JWTSecret, s.ID, s.VenueID, s.Role, h.TTLMin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
		"venue_id":     s.VenueID,
		"role":         s.Role,
	})
}
