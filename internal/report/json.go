package report

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/0x6d61/xssleech/internal/engine"
)

// json leaves <, > and & unescaped so payloads stay readable in the output.
var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// JSONSink appends one JSON object per finding (JSON lines).
type JSONSink struct {
	path string
	mu   sync.Mutex
}

// jsonFinding is the JSON representation of a finding.
type jsonFinding struct {
	URL      string    `json:"url"`
	Payload  string    `json:"payload"`
	Page     string    `json:"page"`
	Method   string    `json:"method"`
	Target   string    `json:"target,omitempty"`
	Evidence string    `json:"evidence,omitempty"`
	FoundAt  time.Time `json:"found_at"`
}

// Format returns "json".
func (s *JSONSink) Format() string {
	return "json"
}

// Record appends f as a single JSON line.
func (s *JSONSink) Record(ctx context.Context, f engine.Finding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := MarshalFinding(f)
	if err != nil {
		return err
	}
	return appendLine(&s.mu, s.path, append(line, '\n'))
}

// Close is a no-op; the file is closed after every record.
func (s *JSONSink) Close() error {
	return nil
}

// MarshalFinding encodes f as one compact JSON object.
func MarshalFinding(f engine.Finding) ([]byte, error) {
	return json.Marshal(jsonFinding{
		URL:      f.URL,
		Payload:  f.Payload,
		Page:     f.Page,
		Method:   f.Method,
		Target:   f.Target,
		Evidence: f.Evidence,
		FoundAt:  f.FoundAt,
	})
}
