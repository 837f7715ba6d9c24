package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-composer/internal/models"
)

type SessionHandler struct {
	DB *gorm.DB
}

func NewSessionHandler(db *gorm.DB) *SessionHandler {
	return &SessionHandler{DB: db}
}

// GetSession returns the session with its working draft and any
// finalized payload.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id := c.Param("id")
	var sess models.Session
	if err := h.DB.Where("id = ?", id).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var draft models.Draft
	if sess.ActiveDraftID != 0 {
		h.DB.First(&draft, sess.ActiveDraftID)
	}

	c.JSON(http.StatusOK, gin.H{
		"session":           sess,
		"draft":             decodeDraft(draft.Draft),
		"status":            draft.Status,
		"finalized_payload": jsonOrNil(draft.FinalizedPayload),
		"memory":            decodeMemory(sess.Memory),
	})
}

// GetHistory returns the conversation turns for a session.
func (h *SessionHandler) GetHistory(c *gin.Context) {
	id := c.Param("id")
	var sess models.Session
	if err := h.DB.Where("id = ?", id).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "messages": decodeHistory(sess.Messages)})
}

// ResetSession opens a fresh working draft for the session, leaving any
// finalized draft untouched.
func (h *SessionHandler) ResetSession(c *gin.Context) {
	id := c.Param("id")
	var sess models.Session
	if err := h.DB.Where("id = ?", id).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var version int
	h.DB.Model(&models.Draft{}).Where("session_id = ?", sess.ID).Select("COALESCE(MAX(version), 0)").Scan(&version)
	draft := models.Draft{SessionID: sess.ID, Version: version + 1, Status: "DRAFT", Draft: "{}"}
	if err := h.DB.Create(&draft).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sess.ActiveDraftID = draft.ID
	sess.Memory = "{}"
	sess.LastAction = ""
	sess.LastQuestionHash = ""
	if err := h.DB.Save(&sess).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "draft_version": draft.Version})
}

func jsonOrNil(s string) any {
	if s == "" {
		return nil
	}
	return decodeDraft(s)
}
