package obs

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestLogWritesJSONLine(t *testing.T) {
	l := Logger()
	original := l.Writer()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	defer l.SetOutput(original)

	Warn("authz_denied", map[string]any{"gate": "role", "err": errors.New("boom"), "msg": "ignored"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "warn" || entry["msg"] != "authz_denied" {
		t.Fatalf("unexpected base fields: %v", entry)
	}
	if entry["gate"] != "role" || entry["err"] != "boom" {
		t.Fatalf("unexpected fields: %v", entry)
	}
	if _, ok := entry["ts"].(string); !ok {
		t.Fatalf("ts missing: %v", entry)
	}
}
