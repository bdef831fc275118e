package detector

import "strings"

// Evidence names the rule that confirmed a finding.
type Evidence struct {
	// Rule is "signature" or "marker".
	Rule string

	// Name is the signature name or the marker text.
	Name string
}

// String renders the evidence as "rule:name".
func (e Evidence) String() string {
	if e.Rule == "" {
		return ""
	}
	return e.Rule + ":" + e.Name
}

// Inspect reports whether content confirms payload was stored unescaped.
// A signature match is enough on its own. Otherwise the payload must appear
// literally (ignoring case) alongside at least one execution marker. The
// check is textual: escaped or quoted marker text elsewhere on the page
// still counts.
func Inspect(content, payload string) (Evidence, bool) {
	if content == "" {
		return Evidence{}, false
	}
	if sig, ok := FindSignature(content); ok {
		return Evidence{Rule: "signature", Name: sig.Name}, true
	}

	lowered := strings.ToLower(content)
	if !strings.Contains(lowered, strings.ToLower(payload)) {
		return Evidence{}, false
	}
	if m, ok := findMarker(lowered); ok {
		return Evidence{Rule: "marker", Name: m}, true
	}
	return Evidence{}, false
}

// Verify is Inspect without the evidence.
func Verify(content, payload string) bool {
	_, ok := Inspect(content, payload)
	return ok
}
