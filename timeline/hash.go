package timeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// ContentHash digests the musical content of a sequence: every event in
// tick order across tracks, as an 8-byte big-endian tick followed by the
// raw message bytes. File names and container details do not affect it.
func ContentHash(seq Sequence) string {
	h := sha256.New()
	var tick [8]byte
	for _, ev := range seq.Merge() {
		binary.BigEndian.PutUint64(tick[:], uint64(ev.Tick))
		h.Write(tick[:])
		h.Write(ev.Msg)
	}
	return hex.EncodeToString(h.Sum(nil))
}
