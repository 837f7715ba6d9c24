package directive

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/template"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Apply executes one directive against a draft+memory pair, returning the
// new pair plus human-readable change notes. Inputs are never mutated and
// re-applying the same directive is safe.
func Apply(rules *config.Rules, draft template.Draft, mem template.Memory, d Directive) (template.Draft, template.Memory, []string) {
	out := draft.Clone()
	m := mem.Clone()
	var notes []string

	cat := effectiveCategory(out, m)

	switch d.Kind {
	case KindButtonsSet:
		if cat == template.CategoryAuthentication {
			notes = append(notes, "Buttons aren't allowed for AUTHENTICATION templates; skipping.")
			break
		}
		applyButtonsSet(rules, &out, d)
		notes = append(notes, "Updated buttons.")

	case KindButtonsDelete:
		if out.RemoveComponent(template.ComponentButtons) {
			notes = append(notes, "Removed buttons.")
		}

	case KindBrandSet:
		name := strings.TrimSpace(d.Name)
		if name == "" {
			break
		}
		m[template.MemBrandName] = name
		if out.HasComponent(template.ComponentBody) {
			if EnsureBrandInBody(&out, name, rules.Limits.BodyMaxLength) {
				notes = append(notes, fmt.Sprintf("Added brand %q to BODY.", name))
			}
		} else {
			m[template.MemBrandNamePending] = name
			notes = append(notes, fmt.Sprintf("Captured brand %q (will apply once BODY is set).", name))
		}

	case KindBodySet:
		txt := strings.TrimSpace(d.Text)
		if txt == "" {
			break
		}
		if c := out.Component(template.ComponentBody); c != nil {
			c.Text = txt
		} else {
			out.InsertComponent(0, template.Component{Type: template.ComponentBody, Text: txt})
		}
		if pending := m.GetString(template.MemBrandNamePending); pending != "" {
			EnsureBrandInBody(&out, pending, rules.Limits.BodyMaxLength)
			delete(m, template.MemBrandNamePending)
		}
		notes = append(notes, "Updated BODY.")

	case KindBodyShorten:
		target := d.Target
		if target <= 0 {
			target = rules.ShortenTarget()
		}
		if shortenBody(&out, target) {
			notes = append(notes, fmt.Sprintf("Shortened BODY to ≈%d chars.", target))
		}

	case KindNameSet:
		if name := strings.TrimSpace(d.Name); name != "" {
			out.Name = name
			notes = append(notes, "Updated template name.")
		}

	case KindHeaderSet:
		format := d.Format
		if format == "" {
			format = template.FormatText
		}
		out.RemoveComponent(template.ComponentHeader)
		h := template.Component{Type: template.ComponentHeader, Format: format}
		if format == template.FormatText {
			h.Text = truncate(strings.TrimSpace(d.Text), rules.Limits.HeaderMaxLength)
		}
		out.InsertComponent(0, h)
		notes = append(notes, "Updated HEADER.")

	case KindHeaderDelete:
		if out.RemoveComponent(template.ComponentHeader) {
			notes = append(notes, "Removed HEADER.")
		}

	case KindFooterSet:
		txt := truncate(strings.TrimSpace(d.Text), rules.Limits.FooterMaxLength)
		if c := out.Component(template.ComponentFooter); c != nil {
			c.Text = txt
			notes = append(notes, "Updated FOOTER.")
		} else if txt != "" {
			out.Components = append(out.Components, template.Component{Type: template.ComponentFooter, Text: txt})
			notes = append(notes, "Updated FOOTER.")
		}

	case KindFooterDelete:
		if out.RemoveComponent(template.ComponentFooter) {
			notes = append(notes, "Removed FOOTER.")
		}
	}

	return out, m, notes
}

// ApplyAll runs directives in order, threading draft, memory and notes.
func ApplyAll(rules *config.Rules, draft template.Draft, mem template.Memory, dirs []Directive) (template.Draft, template.Memory, []string) {
	var notes []string
	for _, d := range dirs {
		var n []string
		draft, mem, n = Apply(rules, draft, mem, d)
		notes = append(notes, n...)
	}
	return draft, mem, notes
}

func applyButtonsSet(rules *config.Rules, d *template.Draft, dir Directive) {
	maxVisible := rules.Limits.Buttons.MaxVisible

	var buttons []template.Button
	switch {
	case len(dir.Labels) > 0:
		labels := dedupLabels(dir.Labels, 25)
		if len(labels) > maxVisible {
			labels = labels[:maxVisible]
		}
		for _, l := range labels {
			buttons = append(buttons, template.Button{Type: template.ButtonQuickReply, Text: l})
		}
	case len(dir.Buttons) > 0:
		buttons = append(buttons, dir.Buttons...)
	default:
		labels := rules.DefaultButtons(effectiveCategory(*d, nil))
		if len(labels) > maxVisible {
			labels = labels[:maxVisible]
		}
		if dir.Count > 0 {
			n := dir.Count
			if n < 1 {
				n = 1
			}
			if n > len(labels) {
				n = len(labels)
			}
			labels = labels[:n]
		}
		for _, l := range labels {
			buttons = append(buttons, template.Button{Type: template.ButtonQuickReply, Text: l})
		}
	}

	if dir.Mode == ModeAppend {
		if c := d.Component(template.ComponentButtons); c != nil {
			c.Buttons = append(c.Buttons, buttons...)
			return
		}
	} else {
		d.RemoveComponent(template.ComponentButtons)
	}
	d.Components = append(d.Components, template.Component{Type: template.ComponentButtons, Buttons: buttons})
}

// EnsureBrandInBody inserts the brand into the BODY text unless it is
// already present as a whole word. Reports whether the text changed.
func EnsureBrandInBody(d *template.Draft, brand string, maxLen int) bool {
	c := d.Component(template.ComponentBody)
	if c == nil || brand == "" {
		return false
	}
	present, err := regexp.MatchString(`(?i)\b`+regexp.QuoteMeta(brand)+`\b`, c.Text)
	if err != nil || present {
		return false
	}
	sep := " — "
	if strings.HasSuffix(c.Text, "!") || strings.HasSuffix(c.Text, ".") || strings.HasSuffix(c.Text, "…") {
		sep = " "
	}
	c.Text = truncate(c.Text+sep+brand, maxLen)
	return true
}

// shortenBody trims the BODY to roughly target chars: whole sentences
// while they fit, else a word-boundary cut with an ellipsis.
func shortenBody(d *template.Draft, target int) bool {
	c := d.Component(template.ComponentBody)
	if c == nil || strings.TrimSpace(c.Text) == "" {
		return false
	}
	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(c.Text, " "))
	if utf8.RuneCountInString(text) <= target {
		return false
	}
	acc := ""
	for _, p := range splitSentences(text) {
		joined := strings.TrimSpace(acc + " " + p)
		if utf8.RuneCountInString(joined) > target {
			break
		}
		acc = joined
	}
	if acc == "" {
		cut := string([]rune(text)[:target])
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		acc = cut + "…"
	}
	c.Text = acc
	return true
}

// splitSentences cuts on .!? runs followed by whitespace, keeping the
// terminators with the preceding sentence.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '.' && s[i] != '!' && s[i] != '?' {
			continue
		}
		j := i
		for j+1 < len(s) && (s[j+1] == '.' || s[j+1] == '!' || s[j+1] == '?') {
			j++
		}
		if j+1 < len(s) && s[j+1] != ' ' {
			i = j
			continue
		}
		out = append(out, strings.TrimSpace(s[start:j+1]))
		start = j + 1
		i = j
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func dedupLabels(labels []string, maxLen int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		l = truncate(strings.TrimSpace(l), maxLen)
		key := strings.ToLower(l)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

func effectiveCategory(d template.Draft, mem template.Memory) template.Category {
	if d.Category != "" {
		return d.Category
	}
	return mem.Category()
}

// truncate cuts s to at most n runes. Limits are code-point counts, so
// multi-byte scripts are never cut mid-rune.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
