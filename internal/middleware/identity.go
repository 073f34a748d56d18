package middleware

// identity.go holds the caller lookup shared by the rate limiter and the
// response cache.

import "github.com/labstack/echo/v4"

// shellID returns the paired shell's identity stored by JWTAuth, or
// "anon" before authentication (the pairing route itself).
func shellID(c echo.Context) string {
    if s, ok := c.Get(CtxShellID).(string); ok && s != "" {
        return s
    }
    return "anon"
}
