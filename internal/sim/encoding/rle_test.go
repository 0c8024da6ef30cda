package encoding

import (
	"slices"
	"testing"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if !slices.Equal(out, in) {
		t.Fatalf("mismatch: got %v want %v", out, in)
	}
}

func TestDecodeRLE_LengthChecks(t *testing.T) {
	enc := EncodeRLE([]uint16{4, 4, 4})
	if _, err := DecodeRLE(enc, 2); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := DecodeRLE(enc, 5); err == nil {
		t.Fatalf("expected short error")
	}
	if _, err := DecodeRLE("!!", 1); err == nil {
		t.Fatalf("expected base64 error")
	}
}

func TestPalette(t *testing.T) {
	tags := []string{"grass", "grass", "rock", "grass", "water"}
	pal, ids, err := Palette(tags)
	if err != nil {
		t.Fatalf("Palette: %v", err)
	}
	if !slices.Equal(pal, []string{"grass", "rock", "water"}) {
		t.Fatalf("palette=%v", pal)
	}
	if !slices.Equal(ids, []uint16{0, 0, 1, 0, 2}) {
		t.Fatalf("ids=%v", ids)
	}
	back, err := Expand(pal, ids)
	if err != nil || !slices.Equal(back, tags) {
		t.Fatalf("Expand=%v err=%v", back, err)
	}
	if _, err := Expand(pal, []uint16{3}); err == nil {
		t.Fatalf("expected range error")
	}
}
