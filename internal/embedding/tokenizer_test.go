package embedding

import (
	"reflect"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("if err != nil { return err }", 6)
	if len(ids) != 6 || len(attn) != 6 || len(types) != 6 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsToken {
		t.Errorf("expected CLS, got %d", ids[0])
	}
	for i, a := range attn {
		if a != 1 {
			t.Errorf("attention[%d]=%d, want 1 for truncated input", i, a)
		}
	}
	if ids[5] != sepToken {
		t.Errorf("expected SEP at end, got %d", ids[5])
	}
}

func TestSimpleTokenizer_Padding(t *testing.T) {
	ids, attn, _ := (&SimpleTokenizer{}).Tokenize("x", 8)
	if ids[2] != sepToken || attn[3] != 0 || ids[3] != 0 {
		t.Errorf("ids=%v attn=%v", ids, attn)
	}
}

func TestSplitTokens(t *testing.T) {
	got := SplitTokens("  foo.Bar(x_1)  ")
	want := []string{"foo", ".", "Bar", "(", "x_1", ")"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if SplitTokens("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
