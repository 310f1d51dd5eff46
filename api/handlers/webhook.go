package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"wellcheck-api/internal/chatbot"
	"wellcheck-api/pkg/logger"
)

// maxWebhookBody bounds the update body read from Telegram
const maxWebhookBody = 1 << 20

// WebhookHandler handles Telegram webhook requests
type WebhookHandler struct {
	chatbotService chatbot.ChatbotService
	logger         *logger.Logger
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(chatbotService chatbot.ChatbotService, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		chatbotService: chatbotService,
		logger:         logger,
	}
}

// HandleTelegramWebhook processes incoming Telegram webhook updates.
// It always answers 200 so Telegram does not redeliver the update.
func (h *WebhookHandler) HandleTelegramWebhook(c *gin.Context) {
	requestID := c.GetString(requestIDKey)

	h.logger.Debugw("Received Telegram webhook",
		"request_id", requestID,
		"content_length", c.Request.ContentLength,
		"content_type", c.GetHeader("Content-Type"))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Errorw("Failed to read webhook body",
			"request_id", requestID,
			"error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if len(body) == 0 {
		h.logger.Warnw("Received empty webhook body", "request_id", requestID)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if err := h.chatbotService.HandleWebhook(c.Request.Context(), body); err != nil {
		h.logger.Errorw("Failed to process webhook",
			"request_id", requestID,
			"error", err,
			"body_size", len(body))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	h.logger.Debugw("Webhook processed successfully",
		"request_id", requestID,
		"body_size", len(body))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
