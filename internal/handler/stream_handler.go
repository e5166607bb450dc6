package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/hokuto/run-telemetry-go/internal/stream"
)

// StreamHandler serves server-sent event streams off the hub
type StreamHandler struct {
	hub *stream.Hub
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// StreamTracking handles GET /api/v1/stream/tracking
func (h *StreamHandler) StreamTracking(c *gin.Context) {
	h.streamTopic(c, stream.TopicTracking)
}

// StreamPending handles GET /api/v1/stream/pending
func (h *StreamHandler) StreamPending(c *gin.Context) {
	h.streamTopic(c, stream.TopicPending)
}

func (h *StreamHandler) streamTopic(c *gin.Context, topic string) {
	client := h.hub.Register(topic)
	defer h.hub.Unregister(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case payload, ok := <-client.Send:
			if !ok {
				return false
			}
			c.SSEvent("message", string(payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
