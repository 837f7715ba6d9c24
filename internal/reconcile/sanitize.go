// Package reconcile merges the three per-turn sources of truth: the
// persisted draft, directives extracted from the user's message, and the
// candidate proposed by the content generator.
package reconcile

import (
	"regexp"
	"strings"

	"whatsapp-composer/internal/template"
)

var (
	nameRe      = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)
	slugCleanRe = regexp.MustCompile(`[^a-z0-9_]+`)
	slugRunRe   = regexp.MustCompile(`_+`)
	langKeyRe   = regexp.MustCompile(`[^a-z_]`)
)

// langAliases maps free-form language mentions to locale codes.
var langAliases = map[string]string{
	"english": "en_US", "en": "en_US", "en_us": "en_US", "english_us": "en_US",
	"hindi": "hi_IN", "hi": "hi_IN", "hi_in": "hi_IN", "hindi_in": "hi_IN",
	"spanish": "es_MX", "es": "es_MX", "es_mx": "es_MX", "spanish_mx": "es_MX",
}

// Slug lowercases s and collapses everything outside [a-z0-9_] so the
// result satisfies the template name pattern.
func Slug(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugCleanRe.ReplaceAllString(s, "_")
	s = strings.Trim(slugRunRe.ReplaceAllString(s, "_"), "_")
	if s == "" {
		s = "template"
	}
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

// NormalizeLanguage resolves a free-form language mention ("english",
// "en-US", "Hindi") to a locale code. Unknown values that already look
// like a locale (contain an underscore) pass through; anything else
// yields "".
func NormalizeLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	key := strings.ToLower(s)
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	key = langKeyRe.ReplaceAllString(key, "")
	if code, ok := langAliases[key]; ok {
		return code
	}
	if strings.Contains(s, "_") {
		return s
	}
	return ""
}

var localeRe = regexp.MustCompile(`^[a-z]{2}_[A-Z]{2}$`)

// GuessLanguage scans a free-form message for a language mention or a
// literal locale code, so "use Hindi please" or "en_US" resolve without a
// directive of their own.
func GuessLanguage(text string) string {
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, `.,;:!?'"()`)
		if localeRe.MatchString(w) {
			return w
		}
		// Two-letter aliases like "hi" collide with ordinary words, so
		// only full language names count in free-form text.
		if key := strings.ToLower(w); len(key) > 2 {
			if code, ok := langAliases[key]; ok {
				return code
			}
		}
	}
	return ""
}

// SanitizeCandidate normalizes the generator's untrusted candidate into a
// typed draft. It is total: any shape comes out as a (possibly empty)
// Draft, never an error. Unknown keys and malformed entries are dropped;
// recoverable shapes (flat body/header/footer fields, buttons emitted as
// bare components, label/title aliases) are lifted into place.
func SanitizeCandidate(cand map[string]any) template.Draft {
	var d template.Draft
	if cand == nil {
		return d
	}

	if nm := strField(cand, "name"); nm != "" {
		if nameRe.MatchString(nm) {
			d.Name = nm
		} else {
			d.Name = Slug(nm)
		}
	}
	if lang := NormalizeLanguage(strField(cand, "language")); lang != "" {
		d.Language = lang
	}
	if cat, ok := template.ParseCategory(strField(cand, "category")); ok {
		d.Category = cat
	}

	var collected []template.Button
	if raw, ok := cand["components"].([]any); ok {
		for _, item := range raw {
			comp, ok := item.(map[string]any)
			if !ok {
				continue
			}
			d.Components = appendComponent(d.Components, comp, &collected)
		}
	}
	if len(collected) > 0 {
		d.Components = append(d.Components, template.Component{
			Type:    template.ComponentButtons,
			Buttons: collected,
		})
	}

	liftFlatFields(&d, cand)
	return d
}

func appendComponent(comps []template.Component, comp map[string]any, collected *[]template.Button) []template.Component {
	switch strings.ToUpper(strings.TrimSpace(strField(comp, "type"))) {
	case "BODY":
		if txt := strField(comp, "text"); txt != "" {
			c := template.Component{Type: template.ComponentBody, Text: txt}
			if ex, ok := comp["example"]; ok {
				c.Example = ex
			}
			comps = append(comps, c)
		}
	case "HEADER":
		format := template.HeaderFormat(strings.ToUpper(strField(comp, "format")))
		txt := strField(comp, "text")
		if format == "" && txt != "" {
			format = template.FormatText
		}
		switch format {
		case template.FormatText:
			if txt != "" {
				comps = append(comps, template.Component{Type: template.ComponentHeader, Format: template.FormatText, Text: txt})
			}
		case template.FormatImage, template.FormatVideo, template.FormatDocument:
			c := template.Component{Type: template.ComponentHeader, Format: format}
			if ex, ok := comp["example"]; ok {
				c.Example = ex
			}
			comps = append(comps, c)
		}
	case "FOOTER":
		if txt := strField(comp, "text"); txt != "" {
			comps = append(comps, template.Component{Type: template.ComponentFooter, Text: txt})
		}
	case "BUTTONS":
		if raw, ok := comp["buttons"].([]any); ok && len(raw) > 0 {
			var btns []template.Button
			for _, b := range raw {
				bm, ok := b.(map[string]any)
				if !ok {
					continue
				}
				if btn, ok := sanitizeButton(bm); ok {
					btns = append(btns, btn)
				}
			}
			if len(btns) > 0 {
				comps = append(comps, template.Component{Type: template.ComponentButtons, Buttons: btns})
			}
			break
		}
		// Generators sometimes emit one component per button with the
		// label in text/label/title. Collect those into a single
		// BUTTONS component at the end.
		if txt := buttonText(comp); txt != "" {
			btn := template.Button{Type: template.ButtonQuickReply, Text: txt}
			if t := strField(comp, "button_type"); t != "" {
				btn.Type = template.ButtonType(strings.ToUpper(t))
			}
			btn.Payload = strField(comp, "payload")
			*collected = append(*collected, btn)
		}
	}
	return comps
}

func sanitizeButton(b map[string]any) (template.Button, bool) {
	txt := buttonText(b)
	if txt == "" {
		return template.Button{}, false
	}
	btnType := template.ButtonQuickReply
	if t := strField(b, "type"); t != "" {
		btnType = template.ButtonType(strings.ToUpper(t))
	}
	btn := template.Button{Type: btnType, Text: txt, Payload: strField(b, "payload")}
	switch btnType {
	case template.ButtonURL:
		btn.URL = strField(b, "url")
		if btn.URL == "" {
			return template.Button{}, false
		}
	case template.ButtonPhoneNumber:
		btn.PhoneNumber = strField(b, "phone_number")
		if btn.PhoneNumber == "" {
			return template.Button{}, false
		}
	}
	return btn, true
}

// liftFlatFields promotes top-level body/header/footer/buttons keys into
// typed components when the structured form is absent.
func liftFlatFields(d *template.Draft, cand map[string]any) {
	if txt := firstStr(cand, "BODY", "body"); txt != "" && !d.HasComponent(template.ComponentBody) {
		d.InsertComponent(0, template.Component{Type: template.ComponentBody, Text: txt})
	}
	if txt := firstStr(cand, "HEADER", "header"); txt != "" && !d.HasComponent(template.ComponentHeader) {
		d.Components = append(d.Components, template.Component{Type: template.ComponentHeader, Format: template.FormatText, Text: txt})
	}
	if txt := firstStr(cand, "FOOTER", "footer"); txt != "" && !d.HasComponent(template.ComponentFooter) {
		d.Components = append(d.Components, template.Component{Type: template.ComponentFooter, Text: txt})
	}
	if d.HasComponent(template.ComponentButtons) {
		return
	}
	raw, ok := cand["buttons"].([]any)
	if !ok {
		if raw, ok = cand["BUTTONS"].([]any); !ok {
			return
		}
	}
	var btns []template.Button
	for _, b := range raw {
		switch v := b.(type) {
		case map[string]any:
			if btn, ok := sanitizeButton(v); ok {
				btns = append(btns, btn)
			}
		case string:
			if s := strings.TrimSpace(v); s != "" {
				btns = append(btns, template.Button{Type: template.ButtonQuickReply, Text: s})
			}
		}
	}
	if len(btns) > 0 {
		d.Components = append(d.Components, template.Component{Type: template.ComponentButtons, Buttons: btns})
	}
}

func buttonText(m map[string]any) string {
	return firstStr(m, "text", "label", "title")
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strField(m, k); s != "" {
			return s
		}
	}
	return ""
}

func strField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
