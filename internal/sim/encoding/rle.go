package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Palette replaces each tag with its index in a first-appearance palette.
func Palette(tags []string) (palette []string, ids []uint16, err error) {
	index := map[string]uint16{}
	ids = make([]uint16, len(tags))
	for i, t := range tags {
		id, ok := index[t]
		if !ok {
			if len(palette) > 0xFFFF {
				return nil, nil, fmt.Errorf("palette overflow at %q", t)
			}
			id = uint16(len(palette))
			index[t] = id
			palette = append(palette, t)
		}
		ids[i] = id
	}
	return palette, ids, nil
}

// Expand is the inverse of Palette.
func Expand(palette []string, ids []uint16) ([]string, error) {
	out := make([]string, len(ids))
	for i, id := range ids {
		if int(id) >= len(palette) {
			return nil, fmt.Errorf("palette id %d out of range at %d", id, i)
		}
		out[i] = palette[id]
	}
	return out, nil
}

// EncodeRLE encodes a sequence of palette ids into base64(varint pairs).
// The pairs are (palette_id, run_len) repeated.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(ids) {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(b))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE expands an EncodeRLE string; want bounds the output length.
func DecodeRLE(b64 string, want int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, want)
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > 0xFFFF {
			return nil, fmt.Errorf("palette id too large: %d", b)
		}
		if run > uint64(want-len(out)) {
			return nil, fmt.Errorf("run of %d overflows %d cells", run, want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(b))
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("decoded %d cells, want %d", len(out), want)
	}
	return out, nil
}
