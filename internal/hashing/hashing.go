// Package hashing derives the username prefix and scrypt lookup hash used
// by the credential-leak check protocol.
package hashing

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// UsernameSalt and PasswordSalt are fixed 32-byte wire-contract constants.
// They must match the oracle's expectations byte-for-byte.
var (
	UsernameSalt = [32]byte{
		0xC4, 0x94, 0xA3, 0x95, 0xF8, 0xC0, 0xE2, 0x3E,
		0xA9, 0x23, 0x04, 0x78, 0x70, 0x2C, 0x72, 0x18,
		0x56, 0x54, 0x99, 0xB3, 0xE9, 0x21, 0x18, 0x6C,
		0x21, 0x1A, 0x01, 0x22, 0x3C, 0x45, 0x4A, 0xFA,
	}

	PasswordSalt = [32]byte{
		0x30, 0x76, 0x2A, 0xD2, 0x3F, 0x7B, 0xA1, 0x9B,
		0xF8, 0xE3, 0x42, 0xFC, 0xA1, 0xA7, 0x8D, 0x06,
		0xE6, 0x6B, 0xE4, 0xDB, 0xB8, 0x4F, 0x81, 0x53,
		0xC5, 0x03, 0xC8, 0xDB, 0xBD, 0xDE, 0xA5, 0x20,
	}
)

const (
	scryptLogN = 12
	scryptR    = 8
	scryptP    = 1
	scryptLen  = 32
)

// EffectiveUsername returns the part of s before the first '@', or s
// unchanged if it contains none.
func EffectiveUsername(s string) string {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		return s[:i]
	}
	return s
}

// UsernameHashPrefix returns the 4-byte SHA-256(username||UsernameSalt)
// prefix with the low 6 bits of the 4th byte cleared. The advertised
// prefix length on the wire is always 26 bits (see oracleproto).
func UsernameHashPrefix(username string) [4]byte {
	h := sha256.New()
	h.Write([]byte(username))
	h.Write(UsernameSalt[:])
	sum := h.Sum(nil)

	var prefix [4]byte
	copy(prefix[:], sum[:4])
	prefix[3] &= 0b11000000
	return prefix
}

// ScryptHash computes scrypt(username||password, username||PasswordSalt,
// N=2^12, r=8, p=1, dkLen=32). It derives the effective username from the
// raw username itself (splitting on '@'), mirroring the original's
// concatenation rules exactly.
func ScryptHash(username, password string) ([]byte, error) {
	effective := EffectiveUsername(username)
	usernamePassword := append([]byte(effective), []byte(password)...)
	salt := append([]byte(effective), PasswordSalt[:]...)

	out, err := scrypt.Key(usernamePassword, salt, 1<<scryptLogN, scryptR, scryptP, scryptLen)
	if err != nil {
		return nil, fmt.Errorf("scrypt hash: %w", err)
	}
	return out, nil
}

// TruncateAtZero truncates b at the first zero byte, if any. The protocol
// requires this before the hash is used as hash-to-curve input so that the
// client and oracle interoperate byte-for-byte.
func TruncateAtZero(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
