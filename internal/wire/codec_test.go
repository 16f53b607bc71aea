package wire

import (
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	values := []uint64{0, 1, 42, 999999, 1 << 40}
	for _, v := range values {
		got, err := Decode(Encode(v))
		if err != nil {
			t.Fatalf("Decode(Encode(%d)): %v", v, err)
		}
		if got != v {
			t.Errorf("Decode(Encode(%d)) = %d", v, got)
		}
	}
}

func TestDecode_Whitespace(t *testing.T) {
	got, err := Decode([]byte(" 123\n"))
	if err != nil {
		t.Fatalf("Decode with whitespace: %v", err)
	}
	if got != 123 {
		t.Errorf("Expected 123, got %d", got)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("   "),
		[]byte("abc"),
		[]byte("-5"),
		[]byte("12 34"), // two coalesced payloads with a gap
		[]byte("1234abc"),
	}
	for _, buf := range cases {
		if _, err := Decode(buf); err == nil {
			t.Errorf("Decode(%q) should fail", buf)
		}
	}
}

// Two payloads written back-to-back with no delimiter concatenate into
// a different, but still well-formed, number. The protocol cannot
// detect this; the test pins the behavior down so it stays a known
// limitation rather than a silent surprise.
func TestDecode_CoalescedPayloads(t *testing.T) {
	buf := append(Encode(12), Encode(34)...)
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("coalesced decode: %v", err)
	}
	if got != 1234 {
		t.Errorf("Expected coalesced value 1234, got %d", got)
	}
}
