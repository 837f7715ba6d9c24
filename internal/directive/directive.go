// Package directive turns free-form user text into structured edit
// instructions and applies them to a draft idempotently.
package directive

import "whatsapp-composer/internal/template"

type Kind string

const (
	KindButtonsSet    Kind = "buttons.set"
	KindButtonsDelete Kind = "buttons.delete"
	KindBrandSet      Kind = "brand.set"
	KindBodySet       Kind = "body.set"
	KindBodyShorten   Kind = "body.shorten"
	KindNameSet       Kind = "name.set"
	KindHeaderSet     Kind = "header.set"
	KindHeaderDelete  Kind = "header.delete"
	KindFooterSet     Kind = "footer.set"
	KindFooterDelete  Kind = "footer.delete"
)

type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
)

// Directive is a single structured edit instruction. Pure data: which
// fields are meaningful depends on Kind.
type Directive struct {
	Kind    Kind
	Mode    Mode
	Labels  []string
	Buttons []template.Button
	Count   int // 0 means unspecified
	Name    string
	Text    string
	Target  int // 0 means unspecified
	Format  template.HeaderFormat
}
