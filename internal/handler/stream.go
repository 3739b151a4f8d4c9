package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	internalRedis "tracker/internal/redis"
)

// StreamHandler relays a device's notifications to HTTP clients as
// server-sent events.
type StreamHandler struct {
	publisher *internalRedis.Publisher
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(publisher *internalRedis.Publisher) *StreamHandler {
	return &StreamHandler{publisher: publisher}
}

// Stream handles GET /v1/devices/:id/events
func (h *StreamHandler) Stream(c *gin.Context) {
	deviceID := c.Param("id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "device id is required"})
		return
	}

	ctx := c.Request.Context()
	sub := h.publisher.Subscribe(ctx, deviceID)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no message is missed
	// between the response headers and the first receive.
	if _, err := sub.Receive(ctx); err != nil {
		respondError(c, err)
		return
	}

	messages := sub.Channel()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent("notification", msg.Payload)
			return true
		}
	})
}
