package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whatsapp-composer/internal/config"
)

type SystemHandler struct {
	Rules *config.Store
}

func NewSystemHandler(rules *config.Store) *SystemHandler {
	return &SystemHandler{Rules: rules}
}

func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReloadRules re-reads the rule file on demand. The file watcher does
// this automatically; the endpoint exists for deployments without one.
func (h *SystemHandler) ReloadRules(c *gin.Context) {
	if _, err := h.Rules.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Rules reloaded"})
}

// Welcome gives a first-time user an orientation message and examples.
func (h *SystemHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Hi! I help you create WhatsApp message templates. Tell me about your business and what you'd like to send.",
		"next_steps": []string{
			"Tell me what kind of message you want to send",
			"Describe your business or use case",
			"Let me know your goal in simple words",
		},
		"examples": []string{
			"I want to send discount offers to my customers",
			"I need to confirm orders for my restaurant",
			"I want to send appointment reminders",
			"I need to send login verification codes",
		},
	})
}
