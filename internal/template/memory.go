package template

// Memory holds cross-turn facts about the user's intent. It stays a
// free-form map because the content generator reports arbitrary keys;
// well-known ones get typed accessors below.
type Memory map[string]any

// Well-known memory keys.
const (
	MemCategory         = "category"
	MemBrandName        = "brand_name"
	MemBrandNamePending = "brand_name_pending"
	MemBusinessType     = "business_type"
	MemWantsHeader      = "wants_header"
	MemWantsFooter      = "wants_footer"
	MemWantsButtons     = "wants_buttons"
	MemExtrasChoice     = "extras_choice"
	MemLanguagePref     = "language_pref"
	MemEventLabel       = "event_label"
)

func (m Memory) GetString(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func (m Memory) GetBool(key string) bool {
	if m == nil {
		return false
	}
	if b, ok := m[key].(bool); ok {
		return b
	}
	return false
}

// Category returns the remembered category, if any.
func (m Memory) Category() Category {
	cat, _ := ParseCategory(m.GetString(MemCategory))
	return cat
}

func (m Memory) Clone() Memory {
	return Memory(cloneMap(m))
}

// MergeDeep merges b over a: last write wins per key, recursing into
// nested maps. Neither input is mutated.
func MergeDeep(a, b Memory) Memory {
	out := cloneMap(a)
	for k, v := range b {
		if bv, ok := v.(map[string]any); ok {
			if av, ok := out[k].(map[string]any); ok {
				out[k] = map[string]any(MergeDeep(av, bv))
				continue
			}
		}
		out[k] = v
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if mv, ok := v.(map[string]any); ok {
			out[k] = cloneMap(mv)
			continue
		}
		out[k] = v
	}
	return out
}
