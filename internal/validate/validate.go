// Package validate checks a merged draft against the creation-payload
// structure and the business lint rules. Both passes collect descriptive
// issues and never fail hard; issues only block finalization.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/template"
)

type Issue struct {
	Message string
}

func (i Issue) String() string { return i.Message }

func issuef(format string, args ...any) Issue {
	return Issue{Message: fmt.Sprintf(format, args...)}
}

// Messages returns the plain strings for response payloads.
func Messages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Message
	}
	return out
}

var (
	namePatternRe  = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)
	placeholderRe  = regexp.MustCompile(`\{\{\s*(\d+)\s*\}\}`)
	adjacentPairRe = regexp.MustCompile(`\}\}\s*\{\{`)
)

// placeholdersIn returns the placeholder indices found in text,
// e.g. "Hi {{2}}" -> [2].
func placeholdersIn(text string) []int {
	var out []int
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		out = append(out, n)
	}
	return out
}

// Validate runs the structural pass then the lint pass and concatenates
// the results.
func Validate(rules *config.Rules, d template.Draft) []Issue {
	return append(CheckStructure(d), Lint(rules, d)...)
}

// CheckStructure is the schema-shaped pass: required top-level fields and
// enum membership. The typed model already excludes most malformed
// shapes; what remains is field presence and closed-set checks.
func CheckStructure(d template.Draft) []Issue {
	var issues []Issue
	if d.Name == "" {
		issues = append(issues, Issue{Message: "'name' is a required property"})
	} else if !namePatternRe.MatchString(d.Name) {
		issues = append(issues, issuef("Name %q does not match pattern ^[a-z0-9_]{1,64}$", d.Name))
	}
	if d.Language == "" {
		issues = append(issues, Issue{Message: "'language' is a required property"})
	}
	if d.Category == "" {
		issues = append(issues, Issue{Message: "'category' is a required property"})
	} else if _, ok := template.ParseCategory(string(d.Category)); !ok {
		issues = append(issues, issuef("Unknown category %q", d.Category))
	}

	for _, c := range d.Components {
		switch c.Type {
		case template.ComponentHeader:
			switch c.Format {
			case template.FormatText, template.FormatImage, template.FormatVideo, template.FormatDocument, template.FormatLocation:
			default:
				issues = append(issues, issuef("Unknown header format %q", c.Format))
			}
		case template.ComponentBody, template.ComponentFooter:
		case template.ComponentButtons:
			for _, b := range c.Buttons {
				switch b.Type {
				case template.ButtonQuickReply:
				case template.ButtonURL:
					if b.URL == "" {
						issues = append(issues, issuef("URL button %q is missing 'url'", b.Text))
					}
				case template.ButtonPhoneNumber:
					if b.PhoneNumber == "" {
						issues = append(issues, issuef("PHONE_NUMBER button %q is missing 'phone_number'", b.Text))
					}
				default:
					issues = append(issues, issuef("Unknown button type %q", b.Type))
				}
			}
		default:
			issues = append(issues, issuef("Unknown component type %q", c.Type))
		}
	}
	return issues
}

// Lint applies the business rules to the draft.
func Lint(rules *config.Rules, d template.Draft) []Issue {
	var issues []Issue
	cat, _ := template.ParseCategory(string(d.Category))
	constraint := rules.Constraint(cat)

	issues = append(issues, lintBody(rules, d)...)

	headers := 0
	for _, c := range d.Components {
		if c.Type == template.ComponentHeader {
			headers++
		}
	}
	if headers > 1 {
		issues = append(issues, Issue{Message: "Only one HEADER component is allowed"})
	}
	if h := d.Component(template.ComponentHeader); h != nil {
		issues = append(issues, lintHeader(rules, constraint, cat, *h)...)
	}

	if whitelist := rules.Lint.Languages.Whitelist; len(whitelist) > 0 && d.Language != "" {
		found := false
		for _, l := range whitelist {
			if l == d.Language {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, issuef("Language '%s' not in whitelist", d.Language))
		}
	}

	if reserved := rules.Lint.Naming.ReservedPrefixes; len(reserved) > 0 && d.Name != "" {
		for _, p := range reserved {
			if strings.HasPrefix(d.Name, p) {
				issues = append(issues, issuef("Name must not start with reserved prefix: %s", strings.Join(reserved, ", ")))
				break
			}
		}
	}

	if f := d.Component(template.ComponentFooter); f != nil {
		if utf8.RuneCountInString(f.Text) > rules.Limits.FooterMaxLength {
			issues = append(issues, issuef("FOOTER exceeds %d chars", rules.Limits.FooterMaxLength))
		}
		if len(placeholdersIn(f.Text)) > 0 {
			issues = append(issues, Issue{Message: "FOOTER must not contain placeholders"})
		}
	}

	if cat == template.CategoryAuthentication {
		if !constraint.FooterAllowed() && d.HasComponent(template.ComponentFooter) {
			issues = append(issues, Issue{Message: "AUTHENTICATION templates should not include FOOTER"})
		}
		if !constraint.ButtonsAllowed() && d.HasComponent(template.ComponentButtons) {
			issues = append(issues, Issue{Message: "AUTHENTICATION templates cannot include custom buttons"})
		}
	}

	issues = append(issues, lintButtonCaps(rules, d)...)
	issues = append(issues, lintPlaceholderSequence(d)...)
	return issues
}

func lintBody(rules *config.Rules, d template.Draft) []Issue {
	var issues []Issue
	body := d.Component(template.ComponentBody)
	if body == nil || strings.TrimSpace(body.Text) == "" {
		return []Issue{{Message: "Missing BODY component"}}
	}
	txt := body.Text
	s := strings.TrimSpace(txt)
	if utf8.RuneCountInString(txt) > rules.Limits.BodyMaxLength {
		issues = append(issues, issuef("BODY exceeds %d characters", rules.Limits.BodyMaxLength))
	}
	if strings.HasPrefix(s, "{{") || strings.HasSuffix(s, "}}") {
		issues = append(issues, Issue{Message: "BODY cannot start or end with a placeholder"})
	}
	if adjacentPairRe.MatchString(txt) {
		issues = append(issues, Issue{Message: "Adjacent placeholders are not allowed"})
	}
	return issues
}

func lintHeader(rules *config.Rules, constraint config.CategoryConstraint, cat template.Category, h template.Component) []Issue {
	var issues []Issue
	format := h.Format
	if format == "" {
		format = template.FormatText
	}
	txt := strings.TrimSpace(h.Text)

	if !constraint.HeaderFormatAllowed(format) {
		return []Issue{issuef("%s templates do not allow %s headers. Allowed: %s",
			cat, format, strings.Join(constraint.AllowedHeaderFormats, ", "))}
	}

	switch format {
	case template.FormatText:
		if n := utf8.RuneCountInString(txt); n > rules.Limits.HeaderMaxLength {
			issues = append(issues, issuef("Header text exceeds %d chars (current: %d)", rules.Limits.HeaderMaxLength, n))
		}
		if txt == "" {
			issues = append(issues, Issue{Message: "TEXT header requires text content"})
		}
		if nvars := len(placeholdersIn(txt)); nvars > 1 {
			issues = append(issues, issuef("Header allows at most 1 variable(s), found %d", nvars))
		} else if nvars > 0 && h.Example == nil {
			issues = append(issues, Issue{Message: "Provide example values for header variables"})
		}
	case template.FormatImage, template.FormatVideo, template.FormatDocument:
		if txt != "" {
			issues = append(issues, issuef("%s header must not include 'text' field", format))
		}
		if h.Example == nil {
			issues = append(issues, issuef("%s header requires an example", format))
		}
	case template.FormatLocation:
		if txt != "" {
			issues = append(issues, Issue{Message: "LOCATION header must not include 'text' field"})
		}
	}
	return issues
}

func lintButtonCaps(rules *config.Rules, d template.Draft) []Issue {
	var buttons []template.Button
	for _, c := range d.Components {
		if c.Type == template.ComponentButtons {
			buttons = append(buttons, c.Buttons...)
		}
	}
	if len(buttons) == 0 {
		return nil
	}
	var issues []Issue
	caps := rules.Limits.Buttons
	if caps.MaxTotal > 0 && len(buttons) > caps.MaxTotal {
		issues = append(issues, issuef("Too many buttons (>%d)", caps.MaxTotal))
	}
	urls, phones := 0, 0
	for _, b := range buttons {
		switch b.Type {
		case template.ButtonURL:
			urls++
		case template.ButtonPhoneNumber:
			phones++
		}
	}
	if caps.MaxURL > 0 && urls > caps.MaxURL {
		issues = append(issues, issuef("Too many URL buttons (>%d)", caps.MaxURL))
	}
	if caps.MaxPhone > 0 && phones > caps.MaxPhone {
		issues = append(issues, issuef("Too many PHONE_NUMBER buttons (>%d)", caps.MaxPhone))
	}
	return issues
}

// lintPlaceholderSequence checks that placeholder numbers across a TEXT
// header and the body start at 1 and are contiguous. Duplicates are fine.
func lintPlaceholderSequence(d template.Draft) []Issue {
	var nums []int
	for _, c := range d.Components {
		switch {
		case c.Type == template.ComponentHeader && (c.Format == template.FormatText || c.Format == ""):
			nums = append(nums, placeholdersIn(c.Text)...)
		case c.Type == template.ComponentBody:
			nums = append(nums, placeholdersIn(c.Text)...)
		}
	}
	if len(nums) == 0 {
		return nil
	}
	uniq := make(map[int]bool)
	for _, n := range nums {
		uniq[n] = true
	}
	sorted := make([]int, 0, len(uniq))
	for n := range uniq {
		sorted = append(sorted, n)
	}
	sort.Ints(sorted)

	var issues []Issue
	if sorted[0] != 1 {
		issues = append(issues, Issue{Message: "Placeholders must start at {{1}} across header+body"})
	}
	var missing []string
	for want := 1; want <= sorted[len(sorted)-1]; want++ {
		if !uniq[want] {
			missing = append(missing, fmt.Sprintf("{{%d}}", want))
		}
	}
	if len(missing) > 0 {
		issues = append(issues, issuef("Placeholders must be sequential across header+body; missing: %s", strings.Join(missing, ", ")))
	}
	return issues
}
