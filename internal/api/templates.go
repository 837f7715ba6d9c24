package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-composer/internal/meta"
	"whatsapp-composer/internal/models"
)

type TemplateHandler struct {
	DB     *gorm.DB
	Client *meta.Client
}

func NewTemplateHandler(db *gorm.DB, client *meta.Client) *TemplateHandler {
	return &TemplateHandler{DB: db, Client: client}
}

// ListFinalized returns locally finalized templates.
func (h *TemplateHandler) ListFinalized(c *gin.Context) {
	var records []models.FinalizedTemplate
	if err := h.DB.Order("created_at DESC").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": records})
}

// Submit pushes a finalized template's creation payload to the WhatsApp
// Business Management API.
func (h *TemplateHandler) Submit(c *gin.Context) {
	if !h.Client.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp credentials not configured"})
		return
	}

	id := c.Param("id")
	var record models.FinalizedTemplate
	if err := h.DB.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(record.Payload), &payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored payload is not valid JSON"})
		return
	}

	resp, err := h.Client.CreateTemplate(payload)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	record.Status = "SUBMITTED"
	if err := h.DB.Save(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Template submitted", "response": resp})
}

// ListRemote passes through the account's templates from the platform.
func (h *TemplateHandler) ListRemote(c *gin.Context) {
	if !h.Client.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp credentials not configured"})
		return
	}
	resp, err := h.Client.GetTemplates()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteRemote removes a template from the platform by name.
func (h *TemplateHandler) DeleteRemote(c *gin.Context) {
	if !h.Client.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp credentials not configured"})
		return
	}
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template name required"})
		return
	}
	if err := h.Client.DeleteTemplate(name); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Template deleted"})
}
