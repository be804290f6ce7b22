package device

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the structural content hash of d, covering its variant, every
// attribute and, recursively, its children. Equal devices always have equal
// sums.
func Sum(d Device) uint64 {
	h := xxhash.New()
	writeString(h, string(d.Kind()))
	d.writeAttrs(h)
	if c, ok := d.(Container); ok {
		var buf [8]byte
		for _, e := range c.Children().entries {
			binary.LittleEndian.PutUint64(buf[:], e.sum)
			_, _ = h.Write(buf[:])
		}
	}
	return h.Sum64()
}

func writeString(h *xxhash.Digest, s string) {
	_, _ = h.WriteString(s)
	_, _ = h.Write([]byte{0})
}

func writeOptional(h *xxhash.Digest, s *string) {
	if s == nil {
		_, _ = h.Write([]byte{0})
		return
	}
	_, _ = h.Write([]byte{1})
	writeString(h, *s)
}

func writeUint(h *xxhash.Digest, v uint64) {
	writeString(h, strconv.FormatUint(v, 10))
}

