// Intentionally vulnerable guestbook for testing xssleech.
// DO NOT deploy this in any production environment.
package main

import (
	"database/sql"
	"fmt"
	"html"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// entryStore keeps posted entries per board.
type entryStore interface {
	Add(board, body string) error
	List(board string) ([]string, error)
}

func main() {
	store, err := openStore()
	if err != nil {
		log.Fatalf("Store setup failed: %v", err)
	}

	// Vulnerable boards: entries are rendered raw
	http.HandleFunc("/guestbook", boardPage(store, "guestbook", "Guestbook", `<form action="/guestbook/sign" method="POST">
<input type="hidden" name="csrf" value="static-token">
<input type="text" name="name">
<textarea name="message"></textarea>
<input type="submit" value="Sign">
</form>`, false))
	http.HandleFunc("/guestbook/sign", post(store, "guestbook", "name", "message"))
	http.HandleFunc("/comments", boardPage(store, "comments", "Comments",
		`<form action="/comments/add"><input name="text"></form>`, false))
	http.HandleFunc("/comments/add", post(store, "comments", "text"))

	// Safe board: entries are HTML-escaped
	http.HandleFunc("/safe", boardPage(store, "safe", "Safe guestbook",
		`<form action="/safe/sign" method="post"><input type="text" name="message"></form>`, true))
	http.HandleFunc("/safe/sign", post(store, "safe", "message"))

	// Health check
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		fmt.Fprint(w, "OK")
	})

	// Index
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>Vulnerable Guestbook</title></head>
<body>
<h1>xssleech Test Server</h1>
<p>WARNING: This is an intentionally vulnerable application for testing only.</p>
<ul>
<li><a href="/guestbook">Guestbook</a> (stored XSS)</li>
<li><a href="/comments">Comments</a> (stored XSS, GET form)</li>
<li><a href="/safe">Safe guestbook</a> (escaped)</li>
<li><a href="mailto:admin@example.com">Contact</a></li>
</ul>
</body></html>`)
	})

	log.Println("Vulnerable guestbook starting on :8080")
	log.Fatal(http.ListenAndServe(":8080", nil))
}

func boardPage(store entryStore, board, title, form string, escape bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.List(board)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "<html><body><h1>%s</h1>\n%s\n", title, form)
		for _, e := range entries {
			if escape {
				e = html.EscapeString(e)
			}
			// VULNERABLE: stored input written without escaping
			fmt.Fprintf(&b, "<div class=\"entry\">%s</div>\n", e)
		}
		b.WriteString("</body></html>")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, b.String())
	}
}

func post(store entryStore, board string, fields ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		for _, f := range fields {
			v := r.Form.Get(f)
			if v == "" {
				continue
			}
			if err := store.Add(board, v); err != nil {
				log.Printf("[%s] store failed: %v", board, err)
				http.Error(w, "Database Error", 500)
				return
			}
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>Thanks for posting!</p></body></html>")
	}
}

// ==================== Stores ====================

func openStore() (entryStore, error) {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return openSQL("mysql", dsn,
			`CREATE TABLE IF NOT EXISTS entries (id INT AUTO_INCREMENT PRIMARY KEY, board VARCHAR(32) NOT NULL, body TEXT NOT NULL)`,
			"INSERT INTO entries (board, body) VALUES (?, ?)",
			"SELECT body FROM entries WHERE board = ? ORDER BY id")
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		return openSQL("postgres", dsn,
			`CREATE TABLE IF NOT EXISTS entries (id SERIAL PRIMARY KEY, board VARCHAR(32) NOT NULL, body TEXT NOT NULL)`,
			"INSERT INTO entries (board, body) VALUES ($1, $2)",
			"SELECT body FROM entries WHERE board = $1 ORDER BY id")
	}
	log.Println("No MYSQL_DSN or POSTGRES_DSN set, keeping entries in memory")
	return &memStore{entries: make(map[string][]string)}, nil
}

type sqlStore struct {
	db     *sql.DB
	insert string
	list   string
}

func openSQL(driver, dsn, schema, insert, list string) (*sqlStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s connection failed: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s ping failed: %w", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("%s schema failed: %w", driver, err)
	}
	log.Printf("Connected to %s", driver)
	return &sqlStore{db: db, insert: insert, list: list}, nil
}

func (s *sqlStore) Add(board, body string) error {
	_, err := s.db.Exec(s.insert, board, body)
	return err
}

func (s *sqlStore) List(board string) ([]string, error) {
	rows, err := s.db.Query(s.list, board)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, body)
	}
	return out, rows.Err()
}

type memStore struct {
	mu      sync.Mutex
	entries map[string][]string
}

func (s *memStore) Add(board, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[board] = append(s.entries[board], body)
	return nil
}

func (s *memStore) List(board string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries[board]...), nil
}
