package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/template"
)

func validDraft() template.Draft {
	return template.Draft{
		Name:     "diwali_sweets_offer",
		Language: "en_US",
		Category: template.CategoryMarketing,
		Components: []template.Component{
			{Type: template.ComponentBody, Text: "Hi {{1}}, enjoy {{2}} off this week!"},
		},
	}
}

func hasIssue(issues []Issue, substr string) bool {
	for _, i := range issues {
		if strings.Contains(i.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidate_CleanDraft(t *testing.T) {
	assert.Empty(t, Validate(config.DefaultRules(), validDraft()))
}

func TestCheckStructure_MissingRequiredFields(t *testing.T) {
	issues := CheckStructure(template.Draft{})
	assert.True(t, hasIssue(issues, "'name' is a required property"))
	assert.True(t, hasIssue(issues, "'language' is a required property"))
	assert.True(t, hasIssue(issues, "'category' is a required property"))
}

func TestCheckStructure_NamePattern(t *testing.T) {
	d := validDraft()
	d.Name = "Diwali Offer"
	issues := CheckStructure(d)
	assert.True(t, hasIssue(issues, "does not match pattern"))
}

func TestCheckStructure_URLButtonNeedsURL(t *testing.T) {
	d := validDraft()
	d.Components = append(d.Components, template.Component{
		Type:    template.ComponentButtons,
		Buttons: []template.Button{{Type: template.ButtonURL, Text: "Visit"}},
	})
	issues := CheckStructure(d)
	assert.True(t, hasIssue(issues, "missing 'url'"))
}

func TestLint_MissingBody(t *testing.T) {
	d := validDraft()
	d.Components = nil
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "Missing BODY component"))
}

func TestLint_BodyPlaceholderEdges(t *testing.T) {
	d := validDraft()
	d.Components[0].Text = "{{1}} starts the message"
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "BODY cannot start or end with a placeholder"))

	d.Components[0].Text = "Message ends with {{1}}"
	issues = Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "BODY cannot start or end with a placeholder"))
}

func TestLint_AdjacentPlaceholders(t *testing.T) {
	d := validDraft()
	d.Components[0].Text = "Hi {{1}} {{2}} welcome!"
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "Adjacent placeholders are not allowed"))
}

func TestLint_PlaceholderGapReportsMissingIndices(t *testing.T) {
	d := validDraft()
	d.Components[0].Text = "Hi {{1}}, enjoy {{3}} and {{5}} today!"
	issues := Lint(config.DefaultRules(), d)
	require.True(t, hasIssue(issues, "missing: {{2}}, {{4}}"))
}

func TestLint_PlaceholdersAcrossHeaderAndBody(t *testing.T) {
	d := validDraft()
	d.Components[0].Text = "Welcome, enjoy {{2}} today!"
	d.Components = append(d.Components, template.Component{
		Type: template.ComponentHeader, Format: template.FormatText,
		Text: "Hello {{1}}", Example: map[string]any{"header_text": []string{"Asha"}},
	})
	issues := Lint(config.DefaultRules(), d)
	assert.False(t, hasIssue(issues, "sequential"), "header {{1}} + body {{2}} is contiguous")
}

func TestLint_GapBetweenHeaderAndBodyPlaceholders(t *testing.T) {
	d := validDraft()
	d.Components[0].Text = "Order {{3}} is ready!"
	d.Components = append(d.Components, template.Component{
		Type: template.ComponentHeader, Format: template.FormatText,
		Text: "Hi {{1}}", Example: map[string]any{"header_text": []string{"Asha"}},
	})
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "missing: {{2}}"))
}

func TestLint_DuplicatePlaceholdersPermitted(t *testing.T) {
	d := validDraft()
	d.Components[0].Text = "Hi {{1}}, yes {{1}}, enjoy {{2}} now!"
	issues := Lint(config.DefaultRules(), d)
	assert.Empty(t, issues)
}

func TestLint_FooterRules(t *testing.T) {
	d := validDraft()
	d.Components = append(d.Components, template.Component{
		Type: template.ComponentFooter, Text: "Thanks {{1}}",
	})
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "FOOTER must not contain placeholders"))

	d.Components[1].Text = strings.Repeat("x", 61)
	issues = Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "FOOTER exceeds 60 chars"))
}

func TestLint_AuthenticationConstraints(t *testing.T) {
	d := template.Draft{
		Name:     "login_code",
		Language: "en_US",
		Category: template.CategoryAuthentication,
		Components: []template.Component{
			{Type: template.ComponentBody, Text: "Hello {{1}}, here is your code."},
			{Type: template.ComponentFooter, Text: "Thanks"},
			{Type: template.ComponentButtons, Buttons: []template.Button{{Type: template.ButtonQuickReply, Text: "OK"}}},
		},
	}
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "AUTHENTICATION templates should not include FOOTER"))
	assert.True(t, hasIssue(issues, "AUTHENTICATION templates cannot include custom buttons"))
}

func TestLint_HeaderLengthCountsRunesNotBytes(t *testing.T) {
	d := validDraft()
	d.Components = append(d.Components, template.Component{
		Type: template.ComponentHeader, Format: template.FormatText,
		Text: "नमस्ते! आपके लिए खास त्योहार ऑफर",
	})
	issues := Lint(config.DefaultRules(), d)
	assert.False(t, hasIssue(issues, "Header text exceeds"),
		"rune count is under the limit even though the byte count is not")

	d.Components[1].Text = strings.Repeat("न", 61)
	issues = Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "Header text exceeds 60 chars (current: 61)"))
}

func TestLint_BodyAndFooterLengthCountRunes(t *testing.T) {
	d := validDraft()
	d.Components[0].Text = strings.Repeat("न", 400)
	d.Components = append(d.Components, template.Component{
		Type: template.ComponentFooter, Text: strings.Repeat("ध", 60),
	})
	issues := Lint(config.DefaultRules(), d)
	assert.False(t, hasIssue(issues, "BODY exceeds"))
	assert.False(t, hasIssue(issues, "FOOTER exceeds"))
}

func TestLint_AuthenticationHeaderFormatRestricted(t *testing.T) {
	d := template.Draft{
		Name:     "login_code",
		Language: "en_US",
		Category: template.CategoryAuthentication,
		Components: []template.Component{
			{Type: template.ComponentBody, Text: "Hello {{1}}, here is your code."},
			{Type: template.ComponentHeader, Format: template.FormatImage, Example: map[string]any{"header_handle": []string{"h"}}},
		},
	}
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "do not allow IMAGE headers"))
}

func TestLint_ButtonCaps(t *testing.T) {
	d := validDraft()
	var buttons []template.Button
	for i := 0; i < 11; i++ {
		buttons = append(buttons, template.Button{Type: template.ButtonQuickReply, Text: "B"})
	}
	d.Components = append(d.Components, template.Component{Type: template.ComponentButtons, Buttons: buttons})
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "Too many buttons (>10)"))

	d.Components[1].Buttons = []template.Button{
		{Type: template.ButtonURL, Text: "A", URL: "https://a.example"},
		{Type: template.ButtonURL, Text: "B", URL: "https://b.example"},
		{Type: template.ButtonURL, Text: "C", URL: "https://c.example"},
	}
	issues = Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "Too many URL buttons (>2)"))

	d.Components[1].Buttons = []template.Button{
		{Type: template.ButtonPhoneNumber, Text: "A", PhoneNumber: "+1111111111"},
		{Type: template.ButtonPhoneNumber, Text: "B", PhoneNumber: "+2222222222"},
	}
	issues = Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "Too many PHONE_NUMBER buttons (>1)"))
}

func TestLint_HeaderVariableNeedsExample(t *testing.T) {
	d := validDraft()
	d.Components[0].Text = "Enjoy {{2}} off today, friends!"
	d.Components = append(d.Components, template.Component{
		Type: template.ComponentHeader, Format: template.FormatText, Text: "Hi {{1}}",
	})
	issues := Lint(config.DefaultRules(), d)
	assert.True(t, hasIssue(issues, "Provide example values for header variables"))
}

func TestLint_LanguageWhitelist(t *testing.T) {
	rules := config.DefaultRules()
	rules.Lint.Languages.Whitelist = []string{"en_US", "hi_IN"}
	d := validDraft()
	d.Language = "fr_FR"
	issues := Lint(rules, d)
	assert.True(t, hasIssue(issues, "Language 'fr_FR' not in whitelist"))
}

func TestLint_ReservedNamePrefix(t *testing.T) {
	rules := config.DefaultRules()
	rules.Lint.Naming.ReservedPrefixes = []string{"sample_"}
	d := validDraft()
	d.Name = "sample_offer"
	issues := Lint(rules, d)
	assert.True(t, hasIssue(issues, "reserved prefix"))
}
