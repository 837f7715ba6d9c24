package reconcile

import "whatsapp-composer/internal/template"

// Missing names the required-but-absent fields of the draft in fixed
// precedence order. Core fields are always checked; the header / footer /
// buttons extras are reported only when memory says the user asked for
// them. AUTHENTICATION templates never take footer or buttons, so only a
// wanted header counts as missing there; for the other categories an
// explicit extras_choice of "skip" suppresses all three.
func Missing(d template.Draft, mem template.Memory) []string {
	var miss []string
	if d.Category == "" {
		miss = append(miss, "category")
	}
	if d.Language == "" {
		miss = append(miss, "language")
	}
	if d.Name == "" {
		miss = append(miss, "name")
	}
	if !d.HasBody() {
		miss = append(miss, "body")
	}

	cat := EffectiveCategory(d, mem)
	if cat == template.CategoryAuthentication {
		if mem.GetBool(template.MemWantsHeader) && !d.HasComponent(template.ComponentHeader) {
			miss = append(miss, "header")
		}
		return miss
	}
	if mem.GetString(template.MemExtrasChoice) == "skip" {
		return miss
	}
	if mem.GetBool(template.MemWantsHeader) && !d.HasComponent(template.ComponentHeader) {
		miss = append(miss, "header")
	}
	if mem.GetBool(template.MemWantsFooter) && !d.HasComponent(template.ComponentFooter) {
		miss = append(miss, "footer")
	}
	if mem.GetBool(template.MemWantsButtons) && !d.HasComponent(template.ComponentButtons) {
		miss = append(miss, "buttons")
	}
	return miss
}

// EffectiveCategory prefers the draft's category, falling back to what
// memory remembers.
func EffectiveCategory(d template.Draft, mem template.Memory) template.Category {
	if cat, ok := template.ParseCategory(string(d.Category)); ok {
		return cat
	}
	return mem.Category()
}
