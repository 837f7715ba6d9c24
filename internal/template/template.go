package template

import "strings"

// --- Enumerations ---

type Category string

const (
	CategoryMarketing      Category = "MARKETING"
	CategoryUtility        Category = "UTILITY"
	CategoryAuthentication Category = "AUTHENTICATION"
)

// ParseCategory normalizes free-form category text to one of the known
// categories. The second return value reports whether it matched.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryMarketing:
		return CategoryMarketing, true
	case CategoryUtility:
		return CategoryUtility, true
	case CategoryAuthentication:
		return CategoryAuthentication, true
	}
	return "", false
}

type ComponentType string

const (
	ComponentHeader  ComponentType = "HEADER"
	ComponentBody    ComponentType = "BODY"
	ComponentFooter  ComponentType = "FOOTER"
	ComponentButtons ComponentType = "BUTTONS"
)

type HeaderFormat string

const (
	FormatText     HeaderFormat = "TEXT"
	FormatImage    HeaderFormat = "IMAGE"
	FormatVideo    HeaderFormat = "VIDEO"
	FormatDocument HeaderFormat = "DOCUMENT"
	FormatLocation HeaderFormat = "LOCATION"
)

type ButtonType string

const (
	ButtonQuickReply  ButtonType = "QUICK_REPLY"
	ButtonURL         ButtonType = "URL"
	ButtonPhoneNumber ButtonType = "PHONE_NUMBER"
)

// --- Wire structures ---
// These mirror the Cloud API creation payload shapes.

type Button struct {
	Type        ButtonType `json:"type"`
	Text        string     `json:"text"`
	URL         string     `json:"url,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	Payload     string     `json:"payload,omitempty"`
}

type Component struct {
	Type    ComponentType `json:"type"`
	Format  HeaderFormat  `json:"format,omitempty"`
	Text    string        `json:"text,omitempty"`
	Example any           `json:"example,omitempty"`
	Buttons []Button      `json:"buttons,omitempty"`
}

// Draft is the in-progress template document. At most one component per
// type; insertion order is kept, HEADER conventionally first.
type Draft struct {
	Name       string      `json:"name,omitempty"`
	Language   string      `json:"language,omitempty"`
	Category   Category    `json:"category,omitempty"`
	Components []Component `json:"components,omitempty"`
}

func (d *Draft) Component(t ComponentType) *Component {
	for i := range d.Components {
		if d.Components[i].Type == t {
			return &d.Components[i]
		}
	}
	return nil
}

func (d *Draft) HasComponent(t ComponentType) bool {
	return d.Component(t) != nil
}

// RemoveComponent drops every component of the given type and reports
// whether anything was removed.
func (d *Draft) RemoveComponent(t ComponentType) bool {
	kept := d.Components[:0]
	removed := false
	for _, c := range d.Components {
		if c.Type == t {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	d.Components = kept
	return removed
}

// InsertComponent places c at the given index, clamping out-of-range
// positions to the ends of the list.
func (d *Draft) InsertComponent(idx int, c Component) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(d.Components) {
		idx = len(d.Components)
	}
	d.Components = append(d.Components, Component{})
	copy(d.Components[idx+1:], d.Components[idx:])
	d.Components[idx] = c
}

// BodyText returns the BODY component text, or "" when absent.
func (d *Draft) BodyText() string {
	if c := d.Component(ComponentBody); c != nil {
		return c.Text
	}
	return ""
}

// HasBody reports whether a BODY component with non-empty text exists.
func (d *Draft) HasBody() bool {
	return strings.TrimSpace(d.BodyText()) != ""
}

func (d Draft) IsEmpty() bool {
	return d.Name == "" && d.Language == "" && d.Category == "" && len(d.Components) == 0
}

// Clone returns a deep copy. Example payloads are opaque and shared.
func (d Draft) Clone() Draft {
	out := d
	out.Components = make([]Component, len(d.Components))
	for i, c := range d.Components {
		cc := c
		if len(c.Buttons) > 0 {
			cc.Buttons = append([]Button(nil), c.Buttons...)
		}
		out.Components[i] = cc
	}
	return out
}
