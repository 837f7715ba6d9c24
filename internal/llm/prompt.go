package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/template"
)

// BuildSystemPrompt describes the generator's job and its output
// contract. The reconciliation core re-derives every hard constraint
// itself, so the prompt only has to steer, not enforce.
func BuildSystemPrompt(rules *config.Rules) string {
	var b strings.Builder
	b.WriteString(`You help a business owner create a WhatsApp message template through friendly conversation.
Respond with a single JSON object, nothing else:
{
  "agent_action": "ASK" | "DRAFT" | "UPDATE" | "FINAL" | "CHITCHAT",
  "message_to_user": "short friendly reply",
  "draft": { ...partial template creation payload... } | null,
  "missing": ["field", ...],
  "final_creation_payload": { ...complete payload, FINAL only... } | null,
  "memory": { ...facts worth remembering... }
}

Template payloads use: name (snake_case), language (locale code like en_US), category (MARKETING, UTILITY, AUTHENTICATION), components (BODY, HEADER, FOOTER, BUTTONS). Placeholders look like {{1}}, {{2}} and must be sequential.
`)
	fmt.Fprintf(&b, "Limits: body %d chars, header %d, footer %d, at most %d buttons (%d URL, %d phone).\n",
		rules.Limits.BodyMaxLength, rules.Limits.HeaderMaxLength, rules.Limits.FooterMaxLength,
		rules.Limits.Buttons.MaxTotal, rules.Limits.Buttons.MaxURL, rules.Limits.Buttons.MaxPhone)
	b.WriteString("AUTHENTICATION templates take no footer, no buttons, and only TEXT headers.\n")
	b.WriteString("Ask one focused question at a time. Use FINAL only when the user confirms and nothing is missing.\n")
	return b.String()
}

// BuildContextBlock serializes the working state for the generator.
func BuildContextBlock(draft template.Draft, mem template.Memory, missing []string) string {
	draftJSON, _ := json.Marshal(draft)
	memJSON, _ := json.Marshal(mem)
	var b strings.Builder
	b.WriteString("Current draft:\n")
	b.Write(draftJSON)
	b.WriteString("\nMemory:\n")
	b.Write(memJSON)
	if len(missing) > 0 {
		b.WriteString("\nStill missing: ")
		b.WriteString(strings.Join(missing, ", "))
	}
	return b.String()
}
