package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/anony/internal/conversation"
	"github.com/wuwenbin0122/anony/internal/session"
	"github.com/wuwenbin0122/anony/internal/utils"
)

// Responder is the conversation surface the handlers drive.
type Responder interface {
	Respond(ctx context.Context, id, userText string) (string, error)
	Reset(ctx context.Context, id string) error
}

type Handler struct {
	conversations Responder
	sessions      *session.Resolver
	logger        *zap.Logger
}

func NewHandler(conversations Responder, sessions *session.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		conversations: conversations,
		sessions:      sessions,
		logger:        utils.NopIfNil(logger).Named("api"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")
	apiGroup.POST("/chat", h.handleChat)
	apiGroup.POST("/reset", h.handleReset)

	// HandleMethodNotAllowed stays off, so unmatched methods land here too.
	router.NoRoute(handleNotFound)
}

func (h *Handler) handleChat(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		payload = nil
	}

	message := messageText(payload["message"])

	id, minted := h.sessions.Resolve(c.GetHeader("Cookie"))

	reply, err := h.conversations.Respond(c.Request.Context(), id, message)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrEmptyMessage):
			writeError(c, http.StatusBadRequest, "empty")
		case errors.Is(err, conversation.ErrStoreUnavailable):
			h.logger.Error("chat history unavailable", utils.SessionField(id), zap.Error(err))
			writeError(c, http.StatusServiceUnavailable, "unavailable")
		default:
			h.logger.Error("chat failed", utils.SessionField(id), zap.Error(err))
			writeError(c, http.StatusInternalServerError, "internal")
		}
		return
	}

	if minted {
		h.logger.Info("session minted", utils.SessionField(id))
	}

	http.SetCookie(c.Writer, h.sessions.Cookie(id))
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *Handler) handleReset(c *gin.Context) {
	if id, ok := h.sessions.Lookup(c.GetHeader("Cookie")); ok {
		if err := h.conversations.Reset(c.Request.Context(), id); err != nil {
			h.logger.Warn("reset failed to delete history", utils.SessionField(id), zap.Error(err))
		}
	}

	http.SetCookie(c.Writer, h.sessions.ExpiredCookie())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func handleNotFound(c *gin.Context) {
	c.String(http.StatusNotFound, "not found")
}

// HandleHealth reports liveness for load balancers.
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// messageText coerces the loosely typed message field to text. Truthy
// scalars are stringified; false, 0 and anything structured count as empty.
func messageText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if !v {
			return ""
		}
		return "true"
	default:
		return ""
	}
}

func writeError(c *gin.Context, status int, code string) {
	c.JSON(status, gin.H{"error": code})
}
