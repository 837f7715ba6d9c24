package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/template"
	"whatsapp-composer/internal/validate"
)

// Action is the conversational action label inferred by the generator.
type Action string

const (
	ActionAsk      Action = "ASK"
	ActionDraft    Action = "DRAFT"
	ActionUpdate   Action = "UPDATE"
	ActionChitchat Action = "CHITCHAT"
	ActionFinal    Action = "FINAL"
)

// ParseAction normalizes an action label; anything unrecognized becomes
// ASK so the conversation keeps moving.
func ParseAction(s string) Action {
	switch Action(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionDraft:
		return ActionDraft
	case ActionUpdate:
		return ActionUpdate
	case ActionChitchat:
		return ActionChitchat
	case ActionFinal:
		return ActionFinal
	}
	return ActionAsk
}

var (
	affirmRe = regexp.MustCompile(`(?i)^\s*(yes|y|ok|okay|sure|sounds\s+good|go\s+ahead|please\s+proceed|proceed|confirm|finalize|do\s+it)\b`)

	inputScrubRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)system\s*:`),
		regexp.MustCompile(`(?i)assistant\s*:`),
		regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`),
		regexp.MustCompile(`(?i)forget\s+everything`),
		regexp.MustCompile(`(?i)act\s+as\s+if`),
		regexp.MustCompile(`\{\{\s*\{\{`),
	}
)

// IsAffirmation reports whether the message opens with a yes-like cue.
func IsAffirmation(text string) bool {
	return affirmRe.MatchString(text)
}

// SanitizeUserInput trims, caps, and scrubs prompt-injection markers from
// the raw message before it reaches the generator.
func SanitizeUserInput(text string) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > 2000 {
		text = string(r[:2000])
	}
	for _, re := range inputScrubRes {
		text = re.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(text)
}

// DeclinedExtras reports whether the user waved off optional components.
func DeclinedExtras(text string) bool {
	t := strings.ToLower(text)
	for _, phrase := range []string{
		"skip", "no buttons", "no header", "no footer",
		"finalize as is", "looks good as is", "no extras",
	} {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}

// TrackExtrasWants records explicit requests for optional components so
// finalization can hold until they exist. Returns the updated memory.
func TrackExtrasWants(mem template.Memory, text string) template.Memory {
	t := strings.ToLower(text)
	out := mem.Clone()
	if strings.Contains(t, "header") {
		out[template.MemWantsHeader] = true
	}
	if strings.Contains(t, "footer") {
		out[template.MemWantsFooter] = true
	}
	if strings.Contains(t, "button") {
		out[template.MemWantsButtons] = true
	}
	if DeclinedExtras(text) {
		out[template.MemExtrasChoice] = "skip"
		delete(out, template.MemWantsHeader)
		delete(out, template.MemWantsFooter)
		delete(out, template.MemWantsButtons)
	}
	return out
}

// InferCategory maps everyday business language onto a template
// category: promotions read as MARKETING, transactional updates as
// UTILITY, verification flows as AUTHENTICATION.
func InferCategory(text string) template.Category {
	t := strings.ToLower(text)
	for _, w := range []string{"login", "password", "verification", "otp", "one-time", "security code", "verify"} {
		if strings.Contains(t, w) {
			return template.CategoryAuthentication
		}
	}
	for _, w := range []string{"order", "confirm", "delivery", "shipping", "appointment", "reminder", "status", "invoice", "payment"} {
		if strings.Contains(t, w) {
			return template.CategoryUtility
		}
	}
	for _, w := range []string{"discount", "sale", "offer", "promotion", "promotional", "deal", "coupon", "launch", "new product"} {
		if strings.Contains(t, w) {
			return template.CategoryMarketing
		}
	}
	return ""
}

// ConversationState names the next core field the session still needs.
func ConversationState(d template.Draft, mem template.Memory) string {
	switch {
	case d.Category == "" && mem.Category() == "":
		return "need_category"
	case d.Language == "" && mem.GetString(template.MemLanguagePref) == "":
		return "need_language"
	case d.Name == "":
		return "need_name"
	case !d.HasBody():
		return "need_body"
	}
	return "ready_to_finalize"
}

// FallbackReply is the deterministic question for a state, used when the
// generator fails or returns nothing usable.
func FallbackReply(state string) string {
	switch state {
	case "need_category":
		return "Which template type do you want: MARKETING, UTILITY, or AUTHENTICATION?"
	case "need_language":
		return "Which language code should I use (e.g., en_US, hi_IN)?"
	case "need_name":
		return "What should we name this template (snake_case)?"
	case "need_body":
		return "What should the main message (BODY) say?"
	}
	return "Could you please rephrase what you want to create?"
}

// TargetedMissingReply asks about the single highest-priority missing
// item. Buttons wanted on an AUTHENTICATION template outrank everything
// because the request itself has to be walked back.
func TargetedMissingReply(missing []string, mem template.Memory) string {
	has := func(k string) bool {
		for _, m := range missing {
			if m == k {
				return true
			}
		}
		return false
	}
	if has("buttons") && mem.Category() == template.CategoryAuthentication {
		return "Buttons aren't allowed for authentication templates; I'll proceed without them. Want a short TEXT header?"
	}
	switch {
	case has("language"):
		return "Great so far. Which language code should I use (e.g., en_US, hi_IN)?"
	case has("name"):
		return "What should we name this template? Use snake_case (e.g., diwali_sweets_offer)."
	case has("body"):
		return "What should the main message (BODY) say? If you want, I can write it for you."
	case has("category"):
		return "Which template category should I use: MARKETING, UTILITY, or AUTHENTICATION?"
	case has("header"):
		return "You asked for a header. Should I add a short TEXT header like 'Festive offer just for you!'?"
	case has("buttons"):
		return "You asked for buttons. Should I add two quick replies like 'View offers' and 'Order now'?"
	case has("footer"):
		return "You asked for a footer. Should I add a short footer like 'Thank you!'?"
	}
	return "What would you like me to add next?"
}

// QuestionHash fingerprints an outgoing question so repeats can be
// detected across turns.
func QuestionHash(q string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(q))))
	return hex.EncodeToString(sum[:8])
}

// MinimalScaffold builds a workable starter draft from memory alone,
// used when finalization is requested with nothing on the table. An
// unknown category yields an empty draft.
func MinimalScaffold(mem template.Memory) template.Draft {
	cat := mem.Category()
	if cat == "" {
		return template.Draft{}
	}
	lang := mem.GetString(template.MemLanguagePref)
	if lang == "" {
		lang = "en_US"
	}
	event := mem.GetString(template.MemEventLabel)
	if event == "" {
		event = "offer"
	}
	business := mem.GetString(template.MemBusinessType)
	if business == "" {
		business = "brand"
	}
	name := fmt.Sprintf("%s_%s_v%s", Slug(event), Slug(business), time.Now().UTC().Format("0102"))

	body := fmt.Sprintf("Hi {{1}}, %s! Enjoy {{2}}.", event)
	switch cat {
	case template.CategoryAuthentication:
		body = "{{1}} is your verification code. Do not share this code. It expires in {{2}} minutes."
	case template.CategoryUtility:
		body = "Hello {{1}}, your {{2}} has been updated. Latest status: {{3}}."
	}
	return template.Draft{
		Category: cat,
		Language: lang,
		Name:     name,
		Components: []template.Component{
			{Type: template.ComponentBody, Text: body},
		},
	}
}

// AutoApplyExtras fills in wanted-but-absent header/footer/buttons when
// the user has just said yes, so an affirmation actually advances the
// draft instead of looping the same question. AUTHENTICATION drafts are
// left alone.
func AutoApplyExtras(userText string, cand template.Draft, mem template.Memory) template.Draft {
	if !IsAffirmation(userText) {
		return cand
	}
	if EffectiveCategory(cand, mem) == template.CategoryAuthentication {
		return cand
	}
	out := cand.Clone()
	if mem.GetBool(template.MemWantsHeader) && !out.HasComponent(template.ComponentHeader) {
		hdr := mem.GetString(template.MemEventLabel)
		if hdr == "" {
			hdr = "Special offer just for you!"
		}
		if r := []rune(hdr); len(r) > 60 {
			hdr = string(r[:60])
		}
		out.InsertComponent(0, template.Component{Type: template.ComponentHeader, Format: template.FormatText, Text: hdr})
	}
	if mem.GetBool(template.MemWantsFooter) && !out.HasComponent(template.ComponentFooter) {
		out.Components = append(out.Components, template.Component{Type: template.ComponentFooter, Text: "Thank you!"})
	}
	if mem.GetBool(template.MemWantsButtons) && !out.HasComponent(template.ComponentButtons) {
		out.Components = append(out.Components, template.Component{
			Type: template.ComponentButtons,
			Buttons: []template.Button{
				{Type: template.ButtonQuickReply, Text: "View offers"},
				{Type: template.ButtonQuickReply, Text: "Order now"},
			},
		})
	}
	return out
}

// StripForSubmission copies the draft keeping only the fields the
// creation API accepts, dropping conversational extras like quick-reply
// payloads.
func StripForSubmission(d template.Draft) template.Draft {
	out := d.Clone()
	for i := range out.Components {
		for j := range out.Components[i].Buttons {
			out.Components[i].Buttons[j].Payload = ""
		}
	}
	return out
}

// Outcome is the result of a finalize attempt.
type Outcome struct {
	OK      bool
	Final   template.Draft // schema-pure payload, valid only when OK
	Draft   template.Draft // working draft to persist either way
	Reply   string
	Missing []string
	Issues  []string
}

// Finalize runs the terminal transition: gate category-specific
// violations, hold for any wanted-but-absent extras, then validate a
// schema-pure copy. Failure reverts the session to a question; success
// yields the immutable creation payload.
func Finalize(rules *config.Rules, draft template.Draft, mem template.Memory) Outcome {
	cat := EffectiveCategory(draft, mem)

	if cat == template.CategoryAuthentication {
		if h := draft.Component(template.ComponentHeader); h != nil && h.Format != "" && h.Format != template.FormatText {
			return Outcome{
				Draft:   draft,
				Reply:   fmt.Sprintf("AUTHENTICATION templates only allow TEXT headers, not %s. Should I drop the header or switch it to text?", h.Format),
				Missing: Missing(draft, mem),
			}
		}
	}

	if cat != template.CategoryAuthentication {
		var extras []string
		if mem.GetBool(template.MemWantsHeader) && !draft.HasComponent(template.ComponentHeader) {
			extras = append(extras, "header")
		}
		if mem.GetBool(template.MemWantsFooter) && !draft.HasComponent(template.ComponentFooter) {
			extras = append(extras, "footer")
		}
		if mem.GetBool(template.MemWantsButtons) && !draft.HasComponent(template.ComponentButtons) {
			extras = append(extras, "buttons")
		}
		if len(extras) > 0 {
			return Outcome{
				Draft:   draft,
				Reply:   TargetedMissingReply(extras, mem),
				Missing: Missing(draft, mem),
			}
		}
	}

	pure := StripForSubmission(draft)
	if issues := validate.Validate(rules, pure); len(issues) > 0 {
		return Outcome{
			Draft:   draft,
			Issues:  validate.Messages(issues),
			Missing: append(Missing(draft, mem), "fix_validation_issues"),
		}
	}
	return Outcome{OK: true, Final: pure, Draft: draft}
}
