package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"whatsapp-composer/internal/template"
)

// Rules is the business-rule configuration consumed by the reconciliation
// core. It is loaded once, treated as immutable, and threaded as a
// parameter into every core function.
type Rules struct {
	NLP struct {
		Synonyms map[string][]string `yaml:"synonyms"`
	} `yaml:"nlp"`

	Limits struct {
		Buttons struct {
			MaxVisible int `yaml:"max_visible"`
			MaxTotal   int `yaml:"max_total"`
			MaxURL     int `yaml:"max_url"`
			MaxPhone   int `yaml:"max_phone"`
		} `yaml:"buttons"`
		HeaderMaxLength int `yaml:"header_max_length"`
		BodyMaxLength   int `yaml:"body_max_length"`
		FooterMaxLength int `yaml:"footer_max_length"`
	} `yaml:"limits"`

	Text struct {
		Shorten struct {
			TargetLength int `yaml:"target_length"`
		} `yaml:"shorten"`
	} `yaml:"text"`

	Lint struct {
		CategoryConstraints map[string]CategoryConstraint `yaml:"category_constraints"`
		DefaultsByCategory  map[string][]string           `yaml:"defaults_by_category"`
		Languages           struct {
			Whitelist []string `yaml:"whitelist"`
		} `yaml:"languages"`
		Naming struct {
			ReservedPrefixes []string `yaml:"reserved_prefixes"`
		} `yaml:"naming"`
	} `yaml:"lint_rules"`
}

// CategoryConstraint captures what a template category permits. Nil
// pointers mean "allowed" so an absent YAML key stays permissive.
type CategoryConstraint struct {
	AllowedHeaderFormats []string `yaml:"allowed_header_formats"`
	AllowFooter          *bool    `yaml:"allow_footer"`
	AllowButtons         *bool    `yaml:"allow_buttons"`
}

func (c CategoryConstraint) FooterAllowed() bool {
	return c.AllowFooter == nil || *c.AllowFooter
}

func (c CategoryConstraint) ButtonsAllowed() bool {
	return c.AllowButtons == nil || *c.AllowButtons
}

func (c CategoryConstraint) HeaderFormatAllowed(f template.HeaderFormat) bool {
	for _, a := range c.AllowedHeaderFormats {
		if strings.EqualFold(a, string(f)) {
			return true
		}
	}
	return false
}

var allHeaderFormats = []string{"TEXT", "IMAGE", "VIDEO", "DOCUMENT", "LOCATION"}

// DefaultRules returns the built-in rule set used when no YAML file is
// present. The defaults mirror Meta's published template constraints.
func DefaultRules() *Rules {
	no := false
	r := &Rules{}
	r.NLP.Synonyms = map[string][]string{
		"add":     {"add", "include", "want", "need", "put"},
		"button":  {"button", "buttons", "cta"},
		"brand":   {"brand", "company", "called", "named"},
		"shorten": {"shorten", "shorter", "short", "condense", "trim"},
		"body":    {"body", "message", "text", "content"},
		"name":    {"name"},
		"header":  {"header"},
		"footer":  {"footer"},
		"remove":  {"remove", "delete", "clear", "drop"},
		"replace": {"replace", "change", "swap", "set"},
		"modify":  {"modify", "update", "edit"},
		"append":  {"another", "more", "also", "append"},
	}
	r.Limits.Buttons.MaxVisible = 3
	r.Limits.Buttons.MaxTotal = 10
	r.Limits.Buttons.MaxURL = 2
	r.Limits.Buttons.MaxPhone = 1
	r.Limits.HeaderMaxLength = 60
	r.Limits.BodyMaxLength = 1024
	r.Limits.FooterMaxLength = 60
	r.Text.Shorten.TargetLength = 140
	r.Lint.CategoryConstraints = map[string]CategoryConstraint{
		"MARKETING": {AllowedHeaderFormats: allHeaderFormats},
		"UTILITY":   {AllowedHeaderFormats: allHeaderFormats},
		"AUTHENTICATION": {
			AllowedHeaderFormats: []string{"TEXT"},
			AllowFooter:          &no,
			AllowButtons:         &no,
		},
	}
	r.Lint.DefaultsByCategory = map[string][]string{
		"MARKETING": {"Shop now", "Learn more", "Contact us"},
		"UTILITY":   {"View details", "Contact us"},
	}
	return r
}

// LoadRules reads the YAML rule file, overlaying it on the defaults.
// A missing file is not an error: the defaults apply.
func LoadRules(path string) (*Rules, error) {
	r := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	r.fillDefaults()
	return r, nil
}

// fillDefaults restores zero-valued numeric limits so a sparse YAML file
// cannot turn a cap into zero.
func (r *Rules) fillDefaults() {
	d := DefaultRules()
	if r.Limits.Buttons.MaxVisible == 0 {
		r.Limits.Buttons.MaxVisible = d.Limits.Buttons.MaxVisible
	}
	if r.Limits.Buttons.MaxTotal == 0 {
		r.Limits.Buttons.MaxTotal = d.Limits.Buttons.MaxTotal
	}
	if r.Limits.Buttons.MaxURL == 0 {
		r.Limits.Buttons.MaxURL = d.Limits.Buttons.MaxURL
	}
	if r.Limits.Buttons.MaxPhone == 0 {
		r.Limits.Buttons.MaxPhone = d.Limits.Buttons.MaxPhone
	}
	if r.Limits.HeaderMaxLength == 0 {
		r.Limits.HeaderMaxLength = d.Limits.HeaderMaxLength
	}
	if r.Limits.BodyMaxLength == 0 {
		r.Limits.BodyMaxLength = d.Limits.BodyMaxLength
	}
	if r.Limits.FooterMaxLength == 0 {
		r.Limits.FooterMaxLength = d.Limits.FooterMaxLength
	}
	if r.Text.Shorten.TargetLength == 0 {
		r.Text.Shorten.TargetLength = d.Text.Shorten.TargetLength
	}
	if len(r.NLP.Synonyms) == 0 {
		r.NLP.Synonyms = d.NLP.Synonyms
	}
	if len(r.Lint.CategoryConstraints) == 0 {
		r.Lint.CategoryConstraints = d.Lint.CategoryConstraints
	}
	if len(r.Lint.DefaultsByCategory) == 0 {
		r.Lint.DefaultsByCategory = d.Lint.DefaultsByCategory
	}
}

// Synonyms returns the lowercased synonym list for a lexical cue.
func (r *Rules) Synonyms(key string) []string {
	out := make([]string, 0, len(r.NLP.Synonyms[key]))
	for _, s := range r.NLP.Synonyms[key] {
		out = append(out, strings.ToLower(s))
	}
	return out
}

// Constraint returns the constraint block for a category, permissive when
// the category is unknown or unconfigured.
func (r *Rules) Constraint(cat template.Category) CategoryConstraint {
	if c, ok := r.Lint.CategoryConstraints[string(cat)]; ok {
		if len(c.AllowedHeaderFormats) == 0 {
			c.AllowedHeaderFormats = allHeaderFormats
		}
		return c
	}
	return CategoryConstraint{AllowedHeaderFormats: allHeaderFormats}
}

// DefaultButtons returns the configured default quick-reply labels for a
// category, falling back to the MARKETING set.
func (r *Rules) DefaultButtons(cat template.Category) []string {
	if labels, ok := r.Lint.DefaultsByCategory[string(cat)]; ok && len(labels) > 0 {
		return labels
	}
	if labels, ok := r.Lint.DefaultsByCategory["MARKETING"]; ok && len(labels) > 0 {
		return labels
	}
	return []string{"Shop now", "Learn more", "Contact us"}
}

func (r *Rules) ShortenTarget() int {
	return r.Text.Shorten.TargetLength
}
