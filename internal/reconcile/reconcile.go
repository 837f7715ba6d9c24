package reconcile

import (
	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/directive"
	"whatsapp-composer/internal/template"
)

// Result is the per-turn reconciliation outcome.
type Result struct {
	Draft   template.Draft
	Memory  template.Memory
	Missing []string
	Notes   []string
}

// Reconcile runs one conversational turn deterministically: normalize the
// generator candidate, merge it over the prior draft, apply the user's
// extracted directives, settle any pending brand insertion, and recompute
// the missing fields. Validation is deferred to Finalize so cosmetic
// issues never block conversation. Given identical inputs, the output is
// identical; both inputs are left untouched.
func Reconcile(rules *config.Rules, prior template.Draft, mem template.Memory, rawText string, candidate map[string]any) Result {
	return ReconcileDraft(rules, prior, mem, rawText, SanitizeCandidate(candidate))
}

// ReconcileDraft is Reconcile with an already-sanitized candidate, for
// callers that pre-process the candidate (extras auto-apply).
func ReconcileDraft(rules *config.Rules, prior template.Draft, mem template.Memory, rawText string, cand template.Draft) Result {
	merged := MergeDraft(prior, cand)

	dirs := directive.Extract(rules, rawText)
	draft, memory, notes := directive.ApplyAll(rules, merged, mem.Clone(), dirs)

	// A brand captured before any BODY existed is applied as soon as a
	// BODY arrives from the candidate side.
	if pending := memory.GetString(template.MemBrandNamePending); pending != "" && draft.HasBody() {
		directive.EnsureBrandInBody(&draft, pending, rules.Limits.BodyMaxLength)
		delete(memory, template.MemBrandNamePending)
	}

	// Opportunistic language pickup from the message itself.
	if draft.Language == "" {
		if lang := GuessLanguage(rawText); lang != "" {
			draft.Language = lang
		}
	}

	return Result{
		Draft:   draft,
		Memory:  memory,
		Missing: Missing(draft, memory),
		Notes:   notes,
	}
}
