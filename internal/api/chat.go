package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/events"
	"whatsapp-composer/internal/llm"
	"whatsapp-composer/internal/models"
	"whatsapp-composer/internal/reconcile"
	"whatsapp-composer/internal/template"
)

type ChatHandler struct {
	DB     *gorm.DB
	Rules  *config.Store
	Gen    llm.Generator
	Events events.Publisher
	Cfg    *config.Config
}

func NewChatHandler(db *gorm.DB, rules *config.Store, gen llm.Generator, pub events.Publisher, cfg *config.Config) *ChatHandler {
	return &ChatHandler{DB: db, Rules: rules, Gen: gen, Events: pub, Cfg: cfg}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type ChatResponse struct {
	SessionID            string          `json:"session_id"`
	Reply                string          `json:"reply"`
	Draft                template.Draft  `json:"draft"`
	Missing              []string        `json:"missing"`
	FinalCreationPayload *template.Draft `json:"final_creation_payload"`
}

// Chat runs one conversational turn: generator proposal, deterministic
// reconciliation, and for FINAL the gated terminal transition.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, draftRow, err := h.loadSession(req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	draft := decodeDraft(draftRow.Draft)
	memory := decodeMemory(sess.Memory)
	history := decodeHistory(sess.Messages)
	rules := h.Rules.Rules()

	safe := reconcile.SanitizeUserInput(req.Message)
	memory = reconcile.TrackExtrasWants(memory, safe)
	if memory.Category() == "" && draft.Category == "" {
		if cat := reconcile.InferCategory(safe); cat != "" {
			memory[template.MemCategory] = string(cat)
		}
	}

	state := reconcile.ConversationState(draft, memory)
	system := llm.BuildSystemPrompt(rules)
	ctxBlock := llm.BuildContextBlock(draft, memory, reconcile.Missing(draft, memory))

	h.logGenerator(sess.ID, "request", gin.H{"state": state, "user": safe}, 0)
	out, err := h.Gen.Respond(c.Request.Context(), system, ctxBlock, history, safe)
	if err != nil {
		// The turn still proceeds deterministically on generator failure:
		// run the directive path against an empty candidate.
		h.logGenerator(sess.ID, "error", gin.H{"error": err.Error()}, 0)
		res := reconcile.Reconcile(rules, draft, memory, safe, nil)
		reply := strings.TrimSpace(strings.Join(append(res.Notes, reconcile.FallbackReply(state)), " "))
		h.persistTurn(sess, draftRow, res.Draft, res.Memory, history, req.Message, reply, "ASK")
		c.JSON(http.StatusOK, ChatResponse{SessionID: sess.ID, Reply: reply, Draft: res.Draft, Missing: res.Missing})
		return
	}
	out = llm.Normalize(out)
	h.logGenerator(sess.ID, "response", out, out.LatencyMS)

	action := reconcile.ParseAction(out.Action)
	memory = template.MergeDeep(memory, out.Memory)

	cand := reconcile.SanitizeCandidate(out.Candidate())
	cand = reconcile.AutoApplyExtras(safe, cand, memory)

	if action == reconcile.ActionFinal {
		h.finalize(c, sess, draftRow, draft, memory, history, req.Message, safe, cand, out.Message)
		return
	}

	res := reconcile.ReconcileDraft(rules, draft, memory, safe, cand)
	memory = res.Memory
	if memory.Category() == "" && res.Draft.Category != "" {
		memory[template.MemCategory] = string(res.Draft.Category)
	}
	if extrasNowPresent(res.Draft, memory) {
		memory[template.MemExtrasChoice] = "accepted"
	}

	reply := composeReply(res.Notes, out.Message, res.Missing, memory)

	// Anti-loop guard: a repeated question answered with "yes" fills one
	// slot instead of asking again.
	working := res.Draft
	missing := res.Missing
	if strings.HasSuffix(reply, "?") {
		qh := reconcile.QuestionHash(reply)
		if sess.LastQuestionHash == qh && reconcile.IsAffirmation(safe) {
			working, missing, reply = h.fillOneSlot(working, memory, missing)
		}
		sess.LastQuestionHash = reconcile.QuestionHash(reply)
	} else {
		sess.LastQuestionHash = ""
	}

	h.persistTurn(sess, draftRow, working, memory, history, req.Message, reply, string(action))
	c.JSON(http.StatusOK, ChatResponse{SessionID: sess.ID, Reply: reply, Draft: working, Missing: missing})
}

func (h *ChatHandler) finalize(c *gin.Context, sess *models.Session, draftRow *models.Draft,
	prior template.Draft, memory template.Memory, history []llm.Turn,
	rawMessage, safe string, cand template.Draft, genReply string) {

	rules := h.Rules.Rules()
	working := reconcile.MergeDraft(prior, cand)
	if working.IsEmpty() {
		working = reconcile.MinimalScaffold(memory)
	}

	outcome := reconcile.Finalize(rules, working, memory)
	if !outcome.OK {
		reply := outcome.Reply
		if len(outcome.Issues) > 0 {
			reply = strings.TrimSpace(genReply + "\n\nPlease fix: " + strings.Join(outcome.Issues, "; "))
		}
		h.persistTurn(sess, draftRow, outcome.Draft, memory, history, rawMessage, reply, "ASK")
		c.JSON(http.StatusOK, ChatResponse{SessionID: sess.ID, Reply: reply, Draft: outcome.Draft, Missing: outcome.Missing})
		return
	}

	finalJSON, _ := json.Marshal(outcome.Final)
	draftRow.Status = "FINAL"
	draftRow.FinalizedPayload = string(finalJSON)

	if reply := strings.TrimSpace(genReply); reply != "" {
		h.persistTurn(sess, draftRow, outcome.Draft, memory, history, rawMessage, reply, "FINAL")
	} else {
		h.persistTurn(sess, draftRow, outcome.Draft, memory, history, rawMessage, "Finalized.", "FINAL")
	}

	record := models.FinalizedTemplate{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Name:      outcome.Final.Name,
		Language:  outcome.Final.Language,
		Category:  string(outcome.Final.Category),
		Status:    "FINAL",
		Payload:   string(finalJSON),
	}
	if err := h.DB.Create(&record).Error; err != nil {
		log.Printf("Failed to record finalized template: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := h.Events.PublishFinalized(ctx, events.FinalizedEvent{
		SessionID: sess.ID,
		Name:      outcome.Final.Name,
		Language:  outcome.Final.Language,
		Category:  string(outcome.Final.Category),
		Payload:   finalJSON,
	})
	if err != nil {
		log.Printf("Failed to publish finalized event: %v", err)
	}

	reply := strings.TrimSpace(genReply)
	if reply == "" {
		reply = "Finalized."
	}
	final := outcome.Final
	c.JSON(http.StatusOK, ChatResponse{SessionID: sess.ID, Reply: reply, Draft: outcome.Draft, FinalCreationPayload: &final})
}

// fillOneSlot advances a stuck conversation by filling the highest
// priority missing core field with a sensible default.
func (h *ChatHandler) fillOneSlot(d template.Draft, mem template.Memory, missing []string) (template.Draft, []string, string) {
	for _, m := range missing {
		switch m {
		case "language":
			lang := mem.GetString(template.MemLanguagePref)
			if lang == "" {
				lang = "en_US"
			}
			d.Language = lang
		case "name":
			label := mem.GetString(template.MemEventLabel)
			if label == "" {
				label = "template"
			}
			d.Name = reconcile.Slug(label)
		case "body":
			if !d.HasBody() {
				d.InsertComponent(0, template.Component{Type: template.ComponentBody, Text: "Hi {{1}}, we have a special offer for you!"})
			}
		default:
			continue
		}
		break
	}
	newMissing := reconcile.Missing(d, mem)
	return d, newMissing, reconcile.TargetedMissingReply(newMissing, mem)
}

func composeReply(notes []string, genReply string, missing []string, mem template.Memory) string {
	parts := append([]string(nil), notes...)
	if s := strings.TrimSpace(genReply); s != "" {
		parts = append(parts, s)
	} else {
		parts = append(parts, reconcile.TargetedMissingReply(missing, mem))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func extrasNowPresent(d template.Draft, mem template.Memory) bool {
	return (mem.GetBool(template.MemWantsHeader) && d.HasComponent(template.ComponentHeader)) ||
		(mem.GetBool(template.MemWantsFooter) && d.HasComponent(template.ComponentFooter)) ||
		(mem.GetBool(template.MemWantsButtons) && d.HasComponent(template.ComponentButtons))
}

// --- Persistence helpers ---

func (h *ChatHandler) loadSession(id string) (*models.Session, *models.Draft, error) {
	var sess models.Session
	if id == "" {
		id = uuid.NewString()
	}
	err := h.DB.Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sess = models.Session{ID: id, Memory: "{}", Messages: "[]"}
		if err := h.DB.Create(&sess).Error; err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}

	var draft models.Draft
	if sess.ActiveDraftID != 0 {
		if err := h.DB.First(&draft, sess.ActiveDraftID).Error; err == nil {
			return &sess, &draft, nil
		}
	}
	draft = models.Draft{SessionID: sess.ID, Version: 1, Status: "DRAFT", Draft: "{}"}
	if err := h.DB.Create(&draft).Error; err != nil {
		return nil, nil, err
	}
	sess.ActiveDraftID = draft.ID
	return &sess, &draft, h.DB.Save(&sess).Error
}

func (h *ChatHandler) persistTurn(sess *models.Session, draftRow *models.Draft,
	draft template.Draft, mem template.Memory, history []llm.Turn, userMsg, reply, action string) {

	draftJSON, _ := json.Marshal(draft)
	memJSON, _ := json.Marshal(mem)
	history = append(history,
		llm.Turn{Role: "user", Content: userMsg},
		llm.Turn{Role: "assistant", Content: reply})
	if max := h.Cfg.HistoryMaxTurns; max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}
	histJSON, _ := json.Marshal(history)

	draftRow.Draft = string(draftJSON)
	if err := h.DB.Save(draftRow).Error; err != nil {
		log.Printf("Failed to save draft: %v", err)
	}
	sess.Memory = string(memJSON)
	sess.Messages = string(histJSON)
	sess.LastAction = action
	if err := h.DB.Save(sess).Error; err != nil {
		log.Printf("Failed to save session: %v", err)
	}
}

func (h *ChatHandler) logGenerator(sessionID, kind string, payload any, latency int64) {
	data, _ := json.Marshal(payload)
	entry := models.GeneratorLog{
		SessionID: sessionID,
		Kind:      kind,
		Payload:   string(data),
		Model:     h.Cfg.GeminiModel,
		LatencyMS: latency,
	}
	if err := h.DB.Create(&entry).Error; err != nil {
		log.Printf("Failed to log generator %s: %v", kind, err)
	}
}

// --- JSON column codecs ---

func decodeDraft(s string) template.Draft {
	var d template.Draft
	if s != "" {
		_ = json.Unmarshal([]byte(s), &d)
	}
	return d
}

func decodeMemory(s string) template.Memory {
	m := template.Memory{}
	if s != "" {
		_ = json.Unmarshal([]byte(s), &m)
	}
	return m
}

func decodeHistory(s string) []llm.Turn {
	var turns []llm.Turn
	if s != "" {
		_ = json.Unmarshal([]byte(s), &turns)
	}
	return turns
}
