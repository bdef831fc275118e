package tamper

import "strings"

// space2slashTamper replaces each space inside a start tag with "/", which
// browsers accept as an attribute separator.
//
// Example:
//
//	`<img src=x onerror=alert(1)>` → `<img/src=x/onerror=alert(1)>`
type space2slashTamper struct{}

func (t *space2slashTamper) Name() string { return "space2slash" }

func (t *space2slashTamper) Apply(s string) string {
	return tagBodyPattern.ReplaceAllStringFunc(s, func(tag string) string {
		return strings.ReplaceAll(tag, " ", "/")
	})
}
