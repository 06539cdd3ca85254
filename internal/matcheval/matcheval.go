// Package matcheval derives the two candidate leak tags from a decrypted
// lookup hash and tests them against oracle-returned match prefixes.
package matcheval

import "crypto/sha256"

// Tags returns the two SHA-256 tags derived from a 33-byte SEC1 compressed
// point D: T0 = SHA-256(0x02 || D[1:]), T1 = SHA-256(0x03 || D[1:]). These
// cover both possible compression parities the oracle may have stored for
// the same X-coordinate.
func Tags(decrypted []byte) (t0, t1 [32]byte) {
	x := decrypted[1:]

	h0 := sha256.New()
	h0.Write([]byte{0x02})
	h0.Write(x)
	copy(t0[:], h0.Sum(nil))

	h1 := sha256.New()
	h1.Write([]byte{0x03})
	h1.Write(x)
	copy(t1[:], h1.Sum(nil))

	return t0, t1
}

// IsLeaked reports whether any prefix in matchPrefixes is a byte-wise
// prefix of either candidate tag derived from decrypted. An empty prefix
// list is not leaked.
func IsLeaked(matchPrefixes [][]byte, decrypted []byte) bool {
	if len(matchPrefixes) == 0 {
		return false
	}

	t0, t1 := Tags(decrypted)

	for _, prefix := range matchPrefixes {
		if hasPrefix(t0[:], prefix) || hasPrefix(t1[:], prefix) {
			return true
		}
	}
	return false
}

func hasPrefix(tag, prefix []byte) bool {
	if len(prefix) > len(tag) {
		return false
	}
	for i, b := range prefix {
		if tag[i] != b {
			return false
		}
	}
	return true
}
