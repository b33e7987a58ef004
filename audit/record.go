package audit

import "time"

// Effect tallies the size of a mutation's blast radius.
type Effect struct {
	Cells   int64
	Rows    int64
	Columns int64
}

// Record is one audited event.
type Record struct {
	Actor     string
	Tool      string
	Action    string
	Resource  string
	Outcome   string // "success", "denied", "error"
	Duration  time.Duration
	RequestID string
	IP        string
	UserAgent string
	Scopes    []string
	Effect    Effect
	Timestamp time.Time

	// Details carries arbitrary additional context (e.g. error message,
	// parameters). Values here are redacted before emission.
	Details map[string]any
}

var redactedKeys = map[string]bool{
	"input":      true,
	"inputs":     true,
	"password":   true,
	"secret":     true,
	"token":      true,
	"api_key":    true,
	"apiKey":     true,
	"credential": true,
}

// redact returns a copy of details with any key observe.Logger would also
// redact replaced by a fixed placeholder, never the original value.
func redact(details map[string]any) map[string]any {
	if len(details) == 0 {
		return details
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		if redactedKeys[k] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}
