package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{Name: "trip", Count: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"name":"trip","count":2}` {
		t.Fatalf("unexpected json: %s", got)
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLFormatter{}).Write(&buf, sample{Name: "trip", Count: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "name: trip\ncount: 2\n" {
		t.Fatalf("unexpected yaml: %q", got)
	}
}

func TestByName(t *testing.T) {
	if f, err := ByName("yaml"); err != nil {
		t.Fatalf("yaml: %v", err)
	} else if _, ok := f.(YAMLFormatter); !ok {
		t.Fatalf("expected YAMLFormatter, got %T", f)
	}
	if f, err := ByName(""); err != nil {
		t.Fatalf("default: %v", err)
	} else if _, ok := f.(JSONFormatter); !ok {
		t.Fatalf("expected JSONFormatter, got %T", f)
	}
	if _, err := ByName("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
