package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"RestaurantAPI/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims defines JWT payload structure
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

const (
	issuer    = "restaurant-api"
	claimsKey = "auth_claims"
)

var jwtSecret = []byte("dev-secret-please-change")

// SetSecret replaces the signing key. Call once at startup.
func SetSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

// GenerateToken creates a signed token for the given user details and expiry (in hours)
func GenerateToken(userID int64, email, role string, hours int) (string, error) {
	if role == "" {
		role = model.RoleCustomer
	}
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(hours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(jwtSecret)
}

func parseToken(header string) (*Claims, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errors.New("invalid authorization header")
	}
	token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID <= 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func unauthorized(c echo.Context, status int, msg string) error {
	code := "unauthorized"
	if status == http.StatusForbidden {
		code = "forbidden"
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

// JWTMiddleware returns an Echo middleware that validates token and sets the claims on the context
func JWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return unauthorized(c, http.StatusUnauthorized, "missing authorization header")
			}
			claims, err := parseToken(auth)
			if err != nil {
				return unauthorized(c, http.StatusUnauthorized, err.Error())
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// Helper to extract claims
func GetClaims(c echo.Context) *Claims {
	if cl, ok := c.Get(claimsKey).(*Claims); ok {
		return cl
	}
	return nil
}

// AdminOnly middleware requires role == admin
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := GetClaims(c)
		if claims == nil {
			return unauthorized(c, http.StatusUnauthorized, "unauthenticated")
		}
		if claims.Role != model.RoleAdmin {
			return unauthorized(c, http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}
