package dedup

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Simhash computes a 64-bit locality-sensitive fingerprint over
// whitespace-separated tokens. Each token votes its FNV-64a bits into a
// signed tally per bit position; positive tallies set the output bit.
// Similar token sets produce fingerprints with small Hamming distance.
func Simhash(text string) uint64 {
	var votes [64]int

	for _, token := range strings.Fields(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				votes[i]++
			} else {
				votes[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if votes[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
