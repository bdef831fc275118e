// Package extract parses HTML pages into the forms and same-domain links the
// crawler acts on.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field is one named input of a form.
type Field struct {
	Name  string
	Type  string
	Value string
}

// Form describes a form found on a page. It is not modified after Forms
// returns it.
type Form struct {
	// Action is the absolute submission URL.
	Action string

	// Method is "get" or "post", lowercased.
	Method string

	// Fields holds the inputs in document order followed by the textareas.
	Fields []Field

	// VerificationURL is the page the form was found on; it is re-fetched
	// after a submission to look for the stored payload.
	VerificationURL string
}

// Page is a parsed HTML document together with the URL it was fetched from.
type Page struct {
	URL  *url.URL
	doc  *goquery.Document
	base string
}

// Parse parses body as the HTML document served at pageURL.
func Parse(pageURL, body string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract: parse page URL: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extract: parse %s: %w", pageURL, err)
	}
	return &Page{URL: u, doc: doc, base: pageURL}, nil
}

// Forms returns every form on the page.
func (p *Page) Forms() []Form {
	var forms []Form
	p.doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		forms = append(forms, p.form(s))
	})
	return forms
}

func (p *Page) form(s *goquery.Selection) Form {
	action := p.base
	if raw, ok := s.Attr("action"); ok && strings.TrimSpace(raw) != "" {
		action = p.resolve(strings.TrimSpace(raw))
	}

	method := strings.ToLower(strings.TrimSpace(s.AttrOr("method", "get")))
	if method == "" {
		method = "get"
	}

	var fields []Field
	s.Find("input").Each(func(_ int, in *goquery.Selection) {
		typ := strings.ToLower(in.AttrOr("type", "text"))
		fields = append(fields, Field{
			Name:  in.AttrOr("name", ""),
			Type:  typ,
			Value: in.AttrOr("value", ""),
		})
	})
	s.Find("textarea").Each(func(_ int, ta *goquery.Selection) {
		fields = append(fields, Field{
			Name:  ta.AttrOr("name", ""),
			Type:  "textarea",
			Value: ta.Text(),
		})
	})

	return Form{
		Action:          action,
		Method:          method,
		Fields:          fields,
		VerificationURL: p.base,
	}
}

// SameDomainLinks returns the absolute targets of every anchor whose host
// equals host, deduplicated in first-seen order. javascript:, mailto:, tel:
// and fragment-only links are skipped.
func (p *Page) SameDomainLinks(host string) []string {
	seen := make(map[string]struct{})
	var links []string
	p.doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if skipHref(href) {
			return
		}
		abs, err := p.URL.Parse(href)
		if err != nil {
			return
		}
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Host, host) {
			return
		}
		link := abs.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}

func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (p *Page) resolve(ref string) string {
	abs, err := p.URL.Parse(ref)
	if err != nil {
		return ref
	}
	return abs.String()
}
