package handler

import (
    "context"  // messenger interface
    "net/http" // HTTP status codes

    "github.com/labstack/echo/v4" // echo request context

    "github.com/iliyamo/irctc-booking-supporter/internal/model"   // booking request payload
    "github.com/iliyamo/irctc-booking-supporter/internal/service" // control message types
)

// Messenger accepts control messages.  *service.Channel implements it.
type Messenger interface {
    Handle(ctx context.Context, req service.Request) service.Response
}

// MessageHandler exposes the shell's control messages over HTTP.
type MessageHandler struct {
    Channel Messenger
}

func NewMessageHandler(ch Messenger) *MessageHandler {
    if ch == nil {
        panic("nil channel passed to NewMessageHandler")
    }
    return &MessageHandler{Channel: ch}
}

// Post handles POST /v1/messages with a {action, config} envelope.
func (h *MessageHandler) Post(c echo.Context) error {
    var req service.Request
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, service.Response{Error: "invalid request body"})
    }
    return h.reply(c, req)
}

// StartBooking handles POST /v1/booking/start with a bare BookingRequest.
func (h *MessageHandler) StartBooking(c echo.Context) error {
    var cfg model.BookingRequest
    if err := c.Bind(&cfg); err != nil {
        return c.JSON(http.StatusBadRequest, service.Response{Error: "invalid request body"})
    }
    return h.reply(c, service.Request{Action: service.ActionStartBooking, Config: &cfg})
}

// OpenIRCTC handles POST /v1/irctc/open.
func (h *MessageHandler) OpenIRCTC(c echo.Context) error {
    return h.reply(c, service.Request{Action: service.ActionOpenIRCTC})
}

// reply answers with the channel's response.  An accepted booking is 202
// since the run continues in the background; a rejected config is 422.
func (h *MessageHandler) reply(c echo.Context, req service.Request) error {
    resp := h.Channel.Handle(c.Request().Context(), req)
    switch {
    case resp.Success && req.Action == service.ActionStartBooking:
        return c.JSON(http.StatusAccepted, resp)
    case resp.Success:
        return c.JSON(http.StatusOK, resp)
    case resp.Reason != "":
        return c.JSON(http.StatusUnprocessableEntity, resp)
    case resp.Error == "Unknown action":
        return c.JSON(http.StatusBadRequest, resp)
    default:
        return c.JSON(http.StatusServiceUnavailable, resp)
    }
}
