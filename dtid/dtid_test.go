package dtid

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"strings"
	"testing"
)

func TestGenerateStringParseRoundTrip(t *testing.T) {
	d, err := Generate(rand.Reader)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !d.Defined() {
		t.Fatalf("expected defined identifier")
	}

	s := d.String()
	if !strings.HasPrefix(s, Prefix) {
		t.Fatalf("missing prefix: %q", s)
	}
	back, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if back != d {
		t.Fatalf("round trip mismatch: %s vs %s", back, d)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"dt:",
		"dt:zz",
		"dt:" + strings.Repeat("0", 2*Size),       // zero identifier
		"dx:" + strings.Repeat("ab", Size),        // wrong prefix
		"dt:" + strings.Repeat("ab", Size) + "ab", // too long
	}
	for _, s := range bad {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) should fail", s)
		}
	}
}

func TestJSONUsesStringForm(t *testing.T) {
	d, err := Generate(rand.Reader)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Contains(b, []byte(Prefix)) {
		t.Fatalf("expected string form in JSON: %s", b)
	}

	var back DT
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != d {
		t.Fatalf("JSON round trip mismatch")
	}

	var undef DT
	b, err = json.Marshal(undef)
	if err != nil {
		t.Fatalf("Marshal undef: %v", err)
	}
	if string(b) != `""` {
		t.Fatalf("Undef should marshal to empty string, got %s", b)
	}
}
