package handler

import (
    "errors"   // errors.Is on repository sentinels
    "net/http" // HTTP status codes
    "net/url"  // labels arrive path-escaped
    "strings"  // label trimming

    "github.com/labstack/echo/v4" // echo request context

    "github.com/iliyamo/irctc-booking-supporter/internal/model"      // booking request payload
    "github.com/iliyamo/irctc-booking-supporter/internal/repository" // saved configuration store
)

// ConfigHandler serves the saved configurations the popup used to keep in
// extension storage.
type ConfigHandler struct {
    Store repository.ConfigStore
}

func NewConfigHandler(store repository.ConfigStore) *ConfigHandler {
    if store == nil {
        panic("nil store passed to NewConfigHandler")
    }
    return &ConfigHandler{Store: store}
}

// List handles GET /v1/configurations.
func (h *ConfigHandler) List(c echo.Context) error {
    list, err := h.Store.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list configurations"})
    }
    return c.JSON(http.StatusOK, echo.Map{"configurations": list})
}

// Latest handles GET /v1/configurations/latest, used to prefill the form.
func (h *ConfigHandler) Latest(c echo.Context) error {
    saved, err := h.Store.Latest(c.Request().Context())
    return h.one(c, saved, err)
}

// Get handles GET /v1/configurations/:label.
func (h *ConfigHandler) Get(c echo.Context) error {
    label, ok := labelParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid label"})
    }
    saved, err := h.Store.Load(c.Request().Context(), label)
    return h.one(c, saved, err)
}

// Put handles PUT /v1/configurations/:label with a BookingRequest body.
func (h *ConfigHandler) Put(c echo.Context) error {
    label, ok := labelParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid label"})
    }
    var req model.BookingRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    saved, err := h.Store.Save(c.Request().Context(), label, req)
    var ve *model.ValidationError
    switch {
    case err == nil:
        return c.JSON(http.StatusOK, saved)
    case errors.Is(err, repository.ErrLabelRequired):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Please enter a name for this configuration"})
    case errors.As(err, &ve):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": ve.Message, "reason": ve.Reason})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not save configuration"})
    }
}

// Delete handles DELETE /v1/configurations/:label.
func (h *ConfigHandler) Delete(c echo.Context) error {
    label, ok := labelParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid label"})
    }
    err := h.Store.Delete(c.Request().Context(), label)
    switch {
    case err == nil:
        return c.NoContent(http.StatusNoContent)
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "configuration not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete configuration"})
    }
}

func (h *ConfigHandler) one(c echo.Context, saved model.SavedConfiguration, err error) error {
    switch {
    case err == nil:
        return c.JSON(http.StatusOK, saved)
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "configuration not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load configuration"})
    }
}

func labelParam(c echo.Context) (string, bool) {
    label, err := url.PathUnescape(c.Param("label"))
    label = strings.TrimSpace(label)
    if err != nil || label == "" {
        return "", false
    }
    return label, true
}
