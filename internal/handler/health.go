package handler // declare the package name; contains HTTP handlers

import (
    "context"  // bounded dependency checks
    "net/http" // net/http provides status codes and response helpers
    "time"     // check timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is the liveness endpoint used by load balancers and monitoring.
// It returns a plain text "ok" with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Check pings one dependency.
type Check func(ctx context.Context) error

// Ready runs every named check with a short timeout and reports 503 when any
// of them fails.  Optional dependencies that are not configured are simply
// not registered.
func Ready(checks map[string]Check) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        code := http.StatusOK
        out := echo.Map{}
        for name, check := range checks {
            if err := check(ctx); err != nil {
                out[name] = err.Error()
                code = http.StatusServiceUnavailable
                continue
            }
            out[name] = "ok"
        }
        return c.JSON(code, out)
    }
}
