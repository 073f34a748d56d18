package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/irctc-booking-supporter/internal/utils" // token verification
)

// Context keys set by JWTAuth.
const (
    CtxShellID = "user_id"
    CtxRole    = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued at pairing and injects the token's subject and role claims into the
// request context.  The provided secret must match the one used when issuing
// tokens.  Handlers and the rate limiter read the shell identity back via
// c.Get(CtxShellID).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set(CtxShellID, claims.Subject)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}
