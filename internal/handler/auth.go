package handler

import (
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // token expiry in responses

    "github.com/google/uuid"      // per-pairing shell identifiers
    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/irctc-booking-supporter/internal/config" // app configuration
    "github.com/iliyamo/irctc-booking-supporter/internal/utils"  // passphrase check and token issuing
)

// AuthHandler pairs the extension shell with the agent.  The shell proves
// it knows the passphrase whose bcrypt hash is configured and receives a
// short-lived access token for /v1.
type AuthHandler struct {
    Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
    return &AuthHandler{Cfg: cfg}
}

// ----- DTOs -----

type pairReq struct {
    Passphrase string `json:"passphrase"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type pairResp struct {
    ShellID string    `json:"shell_id"`
    Access  tokenPart `json:"access"`
}

// Pair: verify the passphrase and issue an access token for a new shell id.
func (h *AuthHandler) Pair(c echo.Context) error {
    var req pairReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if strings.TrimSpace(req.Passphrase) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "passphrase required"})
    }
    if !utils.VerifyPassword(h.Cfg.ShellPassphraseHash, req.Passphrase) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    shell := "shell-" + uuid.NewString()
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, shell, utils.RoleShell, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, pairResp{
        ShellID: shell,
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Me: simple protected endpoint the shell uses to check its token.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "shell_id": c.Get("user_id"),
        "role":     c.Get("role"),
    })
}
