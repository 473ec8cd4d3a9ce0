package api

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/orbitview/internal/stream"
)

// streamEvents serves the session's frame and chat events as Server-Sent
// Events, starting with the current frame.
func (h *Handler) streamEvents(c *gin.Context) {
	s := current(c)

	id, ch := s.Events.Subscribe()
	defer s.Events.Unsubscribe(id)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(string(stream.EventFrame), s.Frame())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev.Data)
			return true
		}
	})
}
