package directive

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/template"
)

var (
	urlRe    = regexp.MustCompile(`(?i)(https?://[^\s]+|www\.[^\s]+\.[^\s]+|[^\s]+\.[^\s]*\.com[^\s]*)`)
	phoneRe  = regexp.MustCompile(`\+?[\d\-\s().]{10,}`)
	tokenRe  = regexp.MustCompile(`[a-z0-9_+:/.-]+`)
	countRe  = regexp.MustCompile(`\b(\d{1,3})\b`)
	targetRe = regexp.MustCompile(`\b(\d{2,4})\b`)
	quotedRe = regexp.MustCompile(`["']([^"']{1,30})["']`)

	// label list after a "buttons to:"-style cue
	buttonListRe = regexp.MustCompile(`(?i)\bbuttons?\s*(?:to|are|should\s+be|=|:)\s*:?\s*(.+)`)

	brandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:company|brand)\s+name\s+(?:is|as|=)\s+(.+)`),
		regexp.MustCompile(`(?i)\bmy\s+(?:company|brand)\s+(?:is|as|=)\s+(.+)`),
		regexp.MustCompile(`(?i)\b(?:include|add)\s+(.+?)\s+as\s+(?:company|brand)\s+name\b`),
		regexp.MustCompile(`(?i)\b(?:called|named)\s+(.+)`),
		regexp.MustCompile(`['"]([^'"]{2,60})['"]`),
	}
	brandRejectRe = regexp.MustCompile(`(?i)^(company|brand|name)$`)
	brandCueRe    = regexp.MustCompile(`(?i)(?:company|brand)\s+name`)
	stopWordRe    = regexp.MustCompile(`(?i)\s+(?:in|for|and|with)\s+`)
	sentenceEndRe = regexp.MustCompile(`[.!?\n]`)

	nameRe = regexp.MustCompile(`(?i)name\s*(?:is|=|as|to)?\s*["']?([a-z0-9_]{1,64})["']?`)

	bodyQuotedRe = regexp.MustCompile(`(?is)(?:body|message|text|content)\s*(?:is|=|:)\s*["'](.+?)["']`)
	bodySayRe    = regexp.MustCompile(`(?is)(?:message|text)\s+(?:should\s+)?(?:say|be|read):?\s+(.+)`)
	bodyBareRe   = regexp.MustCompile(`(?is)(?:body|message|text|content)\s*(?:is|=|:)\s*(.+)`)
	bodySayCutRe = regexp.MustCompile(`(?i)\s+and\s+(?:add\s|button)`)
	bodyCutRe    = regexp.MustCompile(`(?i)\s+and\s+`)

	headerQuotedRe = regexp.MustCompile(`(?is)header\s*(?:is|=|:)\s*["'](.+?)["']`)
	footerQuotedRe = regexp.MustCompile(`(?is)footer\s*(?:is|=|:)\s*["'](.+?)["']`)

	wordCounts = map[string]int{"one": 1, "two": 2, "three": 3}
)

// Extract parses one user utterance into zero or more directives.
// Pattern coverage is deliberately partial: no match means no directive,
// never an error.
func Extract(rules *config.Rules, text string) []Directive {
	lower := strings.ToLower(text)
	toks := tokenRe.FindAllString(lower, -1)

	var out []Directive

	if d := buttonsDirective(rules, text, lower, toks); d != nil {
		out = append(out, *d)
	}

	if hasAny(toks, rules.Synonyms("brand")) || strings.Contains(lower, "company name") || strings.Contains(lower, "brand name") {
		if brand := extractBrand(text); brand != "" {
			out = append(out, Directive{Kind: KindBrandSet, Name: brand})
		}
	}

	if hasAny(toks, rules.Synonyms("shorten")) || strings.Contains(lower, "make it short") {
		d := Directive{Kind: KindBodyShorten}
		if m := targetRe.FindStringSubmatch(text); m != nil {
			d.Target, _ = strconv.Atoi(m[1])
		}
		out = append(out, d)
	}

	// "company name is X" must not double as a template-name cue
	if hasAny(toks, rules.Synonyms("name")) && !brandCueRe.MatchString(text) {
		if m := nameRe.FindStringSubmatch(text); m != nil {
			out = append(out, Directive{Kind: KindNameSet, Name: strings.ToLower(m[1])})
		}
	}

	if hasAny(toks, rules.Synonyms("body")) {
		if body := extractBody(text); body != "" {
			out = append(out, Directive{Kind: KindBodySet, Text: body})
		}
	}

	if hasAny(toks, rules.Synonyms("header")) {
		if m := headerQuotedRe.FindStringSubmatch(text); m != nil {
			out = append(out, Directive{Kind: KindHeaderSet, Format: template.FormatText, Text: strings.TrimSpace(m[1])})
		}
	}
	if hasAny(toks, rules.Synonyms("footer")) {
		if m := footerQuotedRe.FindStringSubmatch(text); m != nil {
			out = append(out, Directive{Kind: KindFooterSet, Text: strings.TrimSpace(m[1])})
		}
	}

	if hasAny(toks, rules.Synonyms("remove")) {
		if strings.Contains(lower, "header") {
			out = append(out, Directive{Kind: KindHeaderDelete})
		}
		if strings.Contains(lower, "footer") {
			out = append(out, Directive{Kind: KindFooterDelete})
		}
		if strings.Contains(lower, "button") {
			out = append(out, Directive{Kind: KindButtonsDelete})
		}
	}

	return out
}

// buttonsDirective resolves all button-related signals in the utterance to
// at most one directive, in fixed precedence, so a single turn can never
// carry conflicting button edits.
func buttonsDirective(rules *config.Rules, text, lower string, toks []string) *Directive {
	wants := hasAny(toks, rules.Synonyms("button")) || strings.Contains(lower, "button")
	if !wants {
		return nil
	}
	// removal is owned by the delete path
	if hasAny(toks, rules.Synonyms("remove")) {
		return nil
	}

	mode := ModeReplace
	if hasAny(toks, rules.Synonyms("append")) {
		mode = ModeAppend
	}

	// a URL or phone number in the utterance owns the directive, so that
	// "add a button to call +91 ..." never reads the number as a label
	quoted := quotedLabels(text)
	if m := urlRe.FindString(text); m != "" {
		u := m
		if !strings.HasPrefix(strings.ToLower(u), "http://") && !strings.HasPrefix(strings.ToLower(u), "https://") {
			u = "https://" + u
		}
		label := "Visit Website"
		if len(quoted) > 0 {
			label = quoted[0]
		}
		return &Directive{Kind: KindButtonsSet, Mode: mode, Buttons: []template.Button{
			{Type: template.ButtonURL, Text: label, URL: u},
		}}
	}
	if m := phoneRe.FindString(text); m != "" && digitCount(m) >= 7 {
		label := "Call us"
		if len(quoted) > 0 {
			label = quoted[0]
		}
		return &Directive{Kind: KindButtonsSet, Mode: mode, Buttons: []template.Button{
			{Type: template.ButtonPhoneNumber, Text: label, PhoneNumber: strings.TrimSpace(m)},
		}}
	}

	labels := quoted
	if len(labels) == 0 {
		labels = listLabels(text)
	}
	count := extractCount(text, toks)

	if len(labels) > 0 && count > 0 {
		return &Directive{Kind: KindButtonsSet, Mode: mode, Labels: labels, Count: count}
	}
	if len(labels) > 0 {
		return &Directive{Kind: KindButtonsSet, Mode: mode, Labels: labels}
	}
	if count > 0 {
		return &Directive{Kind: KindButtonsSet, Mode: mode, Count: count}
	}
	// bare "add buttons": the applier fills category defaults
	return &Directive{Kind: KindButtonsSet, Mode: mode}
}

func extractBrand(text string) string {
	for i, p := range brandPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := m[1]
		if i != 2 && i != 4 { // open-ended captures get cut back
			if loc := sentenceEndRe.FindStringIndex(name); loc != nil {
				name = name[:loc[0]]
			}
			if loc := stopWordRe.FindStringIndex(name); loc != nil {
				name = name[:loc[0]]
			}
		}
		name = strings.Trim(strings.TrimSpace(name), `.,;:!'" `)
		if name == "" || brandRejectRe.MatchString(name) {
			continue
		}
		if r := []rune(name); len(r) > 60 {
			name = string(r[:60])
		}
		return name
	}
	return ""
}

func extractBody(text string) string {
	if m := bodyQuotedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := bodySayRe.FindStringSubmatch(text); m != nil {
		s := m[1]
		if loc := bodySayCutRe.FindStringIndex(s); loc != nil {
			s = s[:loc[0]]
		}
		return strings.Trim(strings.TrimSpace(s), `'"`)
	}
	if m := bodyBareRe.FindStringSubmatch(text); m != nil {
		s := m[1]
		if loc := bodyCutRe.FindStringIndex(s); loc != nil {
			s = s[:loc[0]]
		}
		return strings.Trim(strings.TrimSpace(s), `'"`)
	}
	return ""
}

func quotedLabels(text string) []string {
	var labels []string
	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		if l := strings.TrimSpace(m[1]); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// listLabels handles "set buttons to: Order Now, Menu" style phrasing.
func listLabels(text string) []string {
	m := buttonListRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	rest := strings.TrimSuffix(strings.TrimSpace(m[1]), ".")
	rest = strings.ReplaceAll(rest, " and ", ",")
	var labels []string
	for _, part := range strings.Split(rest, ",") {
		l := strings.TrimSpace(part)
		if l == "" || utf8.RuneCountInString(l) > 25 {
			return nil
		}
		labels = append(labels, l)
	}
	return labels
}

func extractCount(text string, toks []string) int {
	if m := countRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	for _, t := range toks {
		if n, ok := wordCounts[t]; ok {
			return n
		}
	}
	return 0
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func hasAny(toks []string, words []string) bool {
	for _, t := range toks {
		for _, w := range words {
			if t == w {
				return true
			}
		}
	}
	return false
}
