// Package testutil provides a mock guestbook web application for exercising
// the xssleech crawler and stored-XSS tests end to end.
//
// SECURITY NOTE: This package is for testing only. The /guestbook, /board
// and /comments endpoints intentionally store user input and render it
// unescaped. /safe renders the same input through html/template.
package testutil

import (
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Guestbook is a running mock application. Each instance keeps its own
// stored entries.
type Guestbook struct {
	*httptest.Server

	mu      sync.Mutex
	entries map[string][]string
	hits    map[string]int
}

var safeTmpl = template.Must(template.New("safe").Parse(
	`<html><body><h1>Safe guestbook</h1>
<form action="/safe/sign" method="post"><input type="text" name="message"><input type="submit" value="Sign"></form>
{{range .}}<div class="entry">{{.}}</div>
{{end}}</body></html>`))

// NewGuestbook starts the mock application:
//
//	/            index page, links to every other page plus noise links
//	/guestbook   POST form to /guestbook/sign, entries rendered raw
//	/safe        POST form to /safe/sign, entries HTML-escaped
//	/board       a vulnerable form and one posting to /board/noop (204)
//	/comments    GET form to /comments/add, entries rendered raw
//	/empty       200 with a blank body
//	/broken      500
//	/loop        links back to / and to itself
func NewGuestbook() *Guestbook {
	g := &Guestbook{
		entries: make(map[string][]string),
		hits:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleIndex)
	mux.HandleFunc("/guestbook", g.handleGuestbook)
	mux.HandleFunc("/guestbook/sign", g.store("guestbook", "message", "name"))
	mux.HandleFunc("/safe", g.handleSafe)
	mux.HandleFunc("/safe/sign", g.store("safe", "message"))
	mux.HandleFunc("/board", g.handleBoard)
	mux.HandleFunc("/board/post", g.store("board", "body"))
	mux.HandleFunc("/board/noop", func(w http.ResponseWriter, r *http.Request) {
		g.hit(r)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/comments", g.handleComments)
	mux.HandleFunc("/comments/add", g.store("comments", "text"))
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		g.hit(r)
		fmt.Fprint(w, "  \n ")
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		g.hit(r)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		g.hit(r)
		writeHTML(w, `<html><body><a href="/">home</a><a href="/loop">again</a><a href="/loop#frag">frag</a></body></html>`)
	})

	g.Server = httptest.NewServer(mux)
	return g
}

// Hits returns how many GET or POST requests reached path. HEAD probes are
// not counted.
func (g *Guestbook) Hits(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hits[path]
}

// Entries returns the values stored on board ("guestbook", "safe", "board"
// or "comments").
func (g *Guestbook) Entries(board string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.entries[board]...)
}

func (g *Guestbook) hit(r *http.Request) {
	if r.Method == http.MethodHead {
		return
	}
	g.mu.Lock()
	g.hits[r.URL.Path]++
	g.mu.Unlock()
}

func (g *Guestbook) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	g.hit(r)
	writeHTML(w, `<html><body><h1>Welcome</h1>
<a href="/guestbook">Guestbook</a>
<a href="/safe">Safe guestbook</a>
<a href="/board">Board</a>
<a href="comments">Comments</a>
<a href="/guestbook">Guestbook again</a>
<a href="/loop">Loop</a>
<a href="mailto:admin@example.com">Mail</a>
<a href="javascript:alert(1)">Script</a>
<a href="#top">Top</a>
<a href="https://external.example/">External</a>
</body></html>`)
}

func (g *Guestbook) handleGuestbook(w http.ResponseWriter, r *http.Request) {
	g.hit(r)
	var b strings.Builder
	b.WriteString(`<html><body><h1>Guestbook</h1>
<form action="/guestbook/sign" method="POST">
<input type="hidden" name="csrf" value="static-token">
<input type="text" name="name">
<textarea name="message"></textarea>
<input type="submit" value="Sign">
</form>
`)
	for _, e := range g.Entries("guestbook") {
		b.WriteString(`<div class="entry">` + e + "</div>\n")
	}
	b.WriteString("</body></html>")
	writeHTML(w, b.String())
}

func (g *Guestbook) handleSafe(w http.ResponseWriter, r *http.Request) {
	g.hit(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	safeTmpl.Execute(w, g.Entries("safe")) //nolint:errcheck
}

func (g *Guestbook) handleBoard(w http.ResponseWriter, r *http.Request) {
	g.hit(r)
	var b strings.Builder
	b.WriteString(`<html><body><h1>Board</h1>
<form action="/board/post" method="post"><textarea name="body"></textarea></form>
<form action="/board/noop" method="post"><input type="text" name="body"></form>
`)
	for _, e := range g.Entries("board") {
		b.WriteString("<p>" + e + "</p>\n")
	}
	b.WriteString("</body></html>")
	writeHTML(w, b.String())
}

func (g *Guestbook) handleComments(w http.ResponseWriter, r *http.Request) {
	g.hit(r)
	var b strings.Builder
	b.WriteString(`<html><body><h1>Comments</h1>
<form action="/comments/add"><input name="text"></form>
`)
	for _, e := range g.Entries("comments") {
		b.WriteString("<li>" + e + "</li>\n")
	}
	b.WriteString("</body></html>")
	writeHTML(w, b.String())
}

// store returns a handler appending the named form values to board.
func (g *Guestbook) store(board string, fields ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.hit(r)
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g.mu.Lock()
		for _, f := range fields {
			if v := r.Form.Get(f); v != "" {
				g.entries[board] = append(g.entries[board], v)
			}
		}
		g.mu.Unlock()
		writeHTML(w, "<html><body><p>Thanks for posting!</p></body></html>")
	}
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, body)
}
