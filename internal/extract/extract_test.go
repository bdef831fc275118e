package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guestbookPage = `<html><body>
<form action="/sign" method="POST">
  <input type="hidden" name="csrf" value="tok123">
  <input name="author">
  <input type="Submit" name="go" value="Sign">
  <textarea name="message">Say hi</textarea>
</form>
<form>
  <input type="text" name="q" value="default">
</form>
<a href="/about">About</a>
<a href="about">Relative</a>
<a href="/about">Duplicate</a>
<a href="https://other.example/x">External</a>
<a href="javascript:void(0)">JS</a>
<a href="mailto:admin@example.com">Mail</a>
<a href="tel:+100">Phone</a>
<a href="#top">Top</a>
<a href="http://example.com:8080/port">Other port</a>
</body></html>`

func TestForms(t *testing.T) {
	page, err := Parse("http://example.com/guestbook/index.html", guestbookPage)
	require.NoError(t, err)

	want := []Form{
		{
			Action: "http://example.com/sign",
			Method: "post",
			Fields: []Field{
				{Name: "csrf", Type: "hidden", Value: "tok123"},
				{Name: "author", Type: "text", Value: ""},
				{Name: "go", Type: "submit", Value: "Sign"},
				{Name: "message", Type: "textarea", Value: "Say hi"},
			},
			VerificationURL: "http://example.com/guestbook/index.html",
		},
		{
			Action:          "http://example.com/guestbook/index.html",
			Method:          "get",
			Fields:          []Field{{Name: "q", Type: "text", Value: "default"}},
			VerificationURL: "http://example.com/guestbook/index.html",
		},
	}
	if diff := cmp.Diff(want, page.Forms()); diff != "" {
		t.Errorf("Forms() mismatch (-want +got):\n%s", diff)
	}
}

func TestFormsNone(t *testing.T) {
	page, err := Parse("http://example.com/", "<p>no forms here</p>")
	require.NoError(t, err)
	assert.Empty(t, page.Forms())
}

func TestSameDomainLinks(t *testing.T) {
	page, err := Parse("http://example.com/guestbook/index.html", guestbookPage)
	require.NoError(t, err)

	want := []string{
		"http://example.com/about",
		"http://example.com/guestbook/about",
	}
	assert.Equal(t, want, page.SameDomainLinks("example.com"))
}

func TestSameDomainLinksHostIncludesPort(t *testing.T) {
	page, err := Parse("http://example.com:8080/", `<a href="/a">a</a><a href="http://example.com/b">b</a>`)
	require.NoError(t, err)

	assert.Equal(t, []string{"http://example.com:8080/a"}, page.SameDomainLinks("example.com:8080"))
}

func TestParseRejectsBadURL(t *testing.T) {
	_, err := Parse("http://[::1", "<html></html>")
	assert.Error(t, err)
}
