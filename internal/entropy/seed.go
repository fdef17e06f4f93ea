// Package entropy supplies seed material for the simulation RNG. A run is
// deterministic once seeded; entropy is only consulted when the operator asks
// for a random seed, and the chosen value is captured so the run can be
// replayed.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// NewSeed returns a fresh seed from crypto/rand, falling back to the wall
// clock if the platform source fails.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
}
