package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/orbitview/internal/assistant"
	"github.com/mr1hm/orbitview/internal/catalog"
	"github.com/mr1hm/orbitview/internal/models"
	"github.com/mr1hm/orbitview/internal/session"
	"github.com/mr1hm/orbitview/internal/stream"
	"github.com/mr1hm/orbitview/internal/tiles"
)

const sessionKey = "session"

type Handler struct {
	cat        *catalog.Catalog
	builder    *tiles.Builder
	sessions   *session.Registry
	dispatcher *assistant.Dispatcher
	chatLimit  gin.HandlerFunc
	now        func() time.Time
}

func NewHandler(cat *catalog.Catalog, builder *tiles.Builder, sessions *session.Registry, dispatcher *assistant.Dispatcher, chatRPS int) *Handler {
	return &Handler{
		cat:        cat,
		builder:    builder,
		sessions:   sessions,
		dispatcher: dispatcher,
		chatLimit:  KeyedRateLimitMiddleware(chatRPS, func(c *gin.Context) string { return c.Param("id") }),
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.GET("/api/layers", h.getLayers)
	r.GET("/api/events", h.getEvents)
	r.GET("/api/tiles/:layer", h.getTileURL)

	r.POST("/api/sessions", h.createSession)

	s := r.Group("/api/sessions/:id", h.loadSession)
	s.GET("", h.getFrame)
	s.DELETE("", h.deleteSession)
	s.PUT("/date", h.setDate)
	s.POST("/date/step", h.stepDate)
	s.POST("/playback/toggle", h.togglePlayback)
	s.PUT("/base-layer", h.selectBaseLayer)
	s.POST("/overlays/:layer/toggle", h.toggleOverlay)
	s.PUT("/overlays/:layer/opacity", h.setOpacity)
	s.POST("/events/:event/jump", h.jumpToEvent)
	s.POST("/viewport/consume", h.consumeViewport)
	s.GET("/chat", h.getChat)
	s.POST("/chat", h.chatLimit, h.postChat)
	s.GET("/stream", h.streamEvents)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len()})
}

func (h *Handler) getLayers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"base_layers":    h.cat.BaseLayers(),
		"overlay_layers": h.cat.OverlayLayers(),
	})
}

func (h *Handler) getEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": h.cat.Events()})
}

// getTileURL returns the URL template for one layer; date defaults to yesterday.
func (h *Handler) getTileURL(c *gin.Context) {
	layer, ok := h.cat.Layer(c.Param("layer"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown layer"})
		return
	}

	date := models.Day(h.now()).AddDate(0, 0, -1)
	if d := c.Query("date"); d != "" {
		parsed, err := models.ParseDate(d)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	c.JSON(http.StatusOK, h.builder.TileLayer(layer, models.FormatDate(date), 1))
}

func (h *Handler) createSession(c *gin.Context) {
	s, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": s.ID, "frame": s.Frame()})
}

func (h *Handler) loadSession(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (h *Handler) getFrame(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Frame())
}

func (h *Handler) deleteSession(c *gin.Context) {
	h.sessions.Delete(c.Request.Context(), current(c).ID)
	c.Status(http.StatusNoContent)
}

type setDateRequest struct {
	Date string `json:"date" binding:"required"`
}

func (h *Handler) setDate(c *gin.Context) {
	var req setDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}
	d, err := models.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	s := current(c)
	s.Controller.SetDate(d)
	c.JSON(http.StatusOK, s.Frame())
}

type stepDateRequest struct {
	Days int `json:"days" binding:"required,oneof=-1 1"`
}

func (h *Handler) stepDate(c *gin.Context) {
	var req stepDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be 1 or -1"})
		return
	}

	s := current(c)
	applied := s.Controller.StepDate(req.Days)
	c.JSON(http.StatusOK, gin.H{"applied": applied, "frame": s.Frame()})
}

func (h *Handler) togglePlayback(c *gin.Context) {
	s := current(c)
	playing := s.Controller.TogglePlayback()
	c.JSON(http.StatusOK, gin.H{"playing": playing, "frame": s.Frame()})
}

type selectLayerRequest struct {
	ID string `json:"id" binding:"required"`
}

func (h *Handler) selectBaseLayer(c *gin.Context) {
	var req selectLayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	s := current(c)
	if !s.Controller.SelectBaseLayer(req.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown base layer"})
		return
	}
	c.JSON(http.StatusOK, s.Frame())
}

func (h *Handler) toggleOverlay(c *gin.Context) {
	id := c.Param("layer")
	if _, ok := h.cat.Overlay(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown overlay"})
		return
	}

	s := current(c)
	active := s.Controller.ToggleOverlay(id)
	c.JSON(http.StatusOK, gin.H{"active": active, "frame": s.Frame()})
}

type opacityRequest struct {
	Opacity *float64 `json:"opacity" binding:"required"`
}

func (h *Handler) setOpacity(c *gin.Context) {
	id := c.Param("layer")
	if _, ok := h.cat.Overlay(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown overlay"})
		return
	}

	var req opacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "opacity is required"})
		return
	}

	s := current(c)
	opacity := s.Controller.SetOpacity(id, *req.Opacity)
	c.JSON(http.StatusOK, gin.H{"opacity": opacity, "frame": s.Frame()})
}

func (h *Handler) jumpToEvent(c *gin.Context) {
	s := current(c)
	if !s.Controller.JumpToEventID(c.Param("event")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event"})
		return
	}
	c.JSON(http.StatusOK, s.Frame())
}

func (h *Handler) consumeViewport(c *gin.Context) {
	vp, ok := current(c).Controller.ConsumePendingViewport()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, vp)
}

func (h *Handler) getChat(c *gin.Context) {
	s := current(c)
	msgs, err := s.Conversation.Messages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "pending": s.Conversation.Pending()})
}

type chatRequest struct {
	Text string `json:"text"`
}

func (h *Handler) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := current(c)
	msg, err := h.dispatcher.Dispatch(c.Request.Context(), s.Conversation, req.Text, s.AssistantContext(), func(reply models.ChatMessage) {
		s.Events.Publish(stream.Event{Type: stream.EventChat, Data: reply})
	})
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
		return
	case errors.Is(err, assistant.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "a request is already in flight"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	s.Events.Publish(stream.Event{Type: stream.EventChat, Data: msg})
	c.JSON(http.StatusAccepted, gin.H{"message": msg, "pending": s.Conversation.Pending()})
}
