package optemplate

import "testing"

func TestBuildNormalizesParams(t *testing.T) {
	tpl, err := Build("row-filter", "SELECT * FROM input WHERE $pred", []string{"pred", "limit", "pred"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !tpl.TID.Defined() {
		t.Fatal("template identifier not assigned")
	}
	if len(tpl.Params) != 2 || tpl.Params[0] != "limit" || tpl.Params[1] != "pred" {
		t.Fatalf("params not normalized: %v", tpl.Params)
	}
	if !VerifyChecksum(tpl, tpl.Checksum) {
		t.Fatal("fresh template fails its own checksum")
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	if _, err := Build("", "op", nil); err == nil {
		t.Fatal("empty name accepted")
	}
	if _, err := Build("n", "", nil); err == nil {
		t.Fatal("empty operation accepted")
	}
	if _, err := Build("n", "op", []string{"a", ""}); err == nil {
		t.Fatal("empty parameter name accepted")
	}
}

func TestAccepts(t *testing.T) {
	tpl, err := Build("agg", "op", []string{"column", "window"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !tpl.Accepts(nil) {
		t.Fatal("nil constraint rejected")
	}
	if !tpl.Accepts(map[string]string{"column": "price"}) {
		t.Fatal("valid subset rejected")
	}
	if tpl.Accepts(map[string]string{"column": "price", "rate": "5m"}) {
		t.Fatal("undeclared parameter accepted")
	}
}

func TestChecksumCoversContent(t *testing.T) {
	tpl, err := Build("agg", "op", []string{"column"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sum := tpl.Checksum
	tpl.Operation = "tampered"
	if VerifyChecksum(tpl, sum) {
		t.Fatal("tampered operation passed checksum")
	}
	tpl.Operation = "op"
	if !VerifyChecksum(tpl, sum) {
		t.Fatal("restored template fails checksum")
	}
	if VerifyChecksum(tpl, "") {
		t.Fatal("empty expected checksum accepted")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tpl, err := Build("agg", "op", []string{"column"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := Encode(tpl)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.TID != tpl.TID || got.Checksum != tpl.Checksum {
		t.Fatal("round trip lost fields")
	}
	if _, err := Decode([]byte(`{"tid":"","unknown":1}`)); err == nil {
		t.Fatal("unknown field accepted")
	}
}
