package reconcile

import "whatsapp-composer/internal/template"

// MergeDraft overlays the sanitized candidate on the prior draft. The
// candidate wins per scalar field when it has a value; the component list
// is the candidate's wholesale replacement when non-empty, otherwise the
// prior's is kept. Neither input is mutated.
func MergeDraft(prior, cand template.Draft) template.Draft {
	out := prior.Clone()
	if cand.Name != "" {
		out.Name = cand.Name
	}
	if cand.Language != "" {
		out.Language = cand.Language
	}
	if cand.Category != "" {
		out.Category = cand.Category
	}
	if len(cand.Components) > 0 {
		out.Components = cand.Clone().Components
	}
	return out
}
