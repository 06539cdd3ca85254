// Package eccipher implements a commutative encryption scheme over NIST
// P-256: encrypting an already-encrypted point under a second key commutes
// with the order of the two keys, which is what lets the client and the
// breach oracle each apply (and later remove) their own blinding factor
// without ever learning the other party's key.
package eccipher

import (
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
)

var (
	curveP, _ = new(big.Int).SetString("ffffffff00000001000000000000000000000000ffffffffffffffffffffffff", 16)
	curveA, _ = new(big.Int).SetString("ffffffff00000001000000000000000000000000fffffffffffffffffffffffc", 16)
	curveB, _ = new(big.Int).SetString("5ac635d8aa3a93e7b3ebbd55769886bc651d06b0cc53b0f63bce3c3e27d2604b", 16)

	three = big.NewInt(3)
	four  = big.NewInt(4)

	ErrInvalidPoint  = errors.New("eccipher: invalid or identity curve point")
	ErrTooManyRounds = errors.New("eccipher: random oracle requires too many rounds")
)

// AllOnesKey returns the deterministic 32-byte all-ones scalar the client
// core uses for every process, so that session-less stateless operation is
// possible. Secrecy of this particular value isn't load-bearing: the scalar
// only blinds the oracle's visibility into H, and H is itself salted
// per-user, so a constant scalar doesn't leak across users.
func AllOnesKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = 1
	}
	return key
}

// Cipher holds a private scalar and exposes commutative encrypt/decrypt
// over P-256. Zero value is not usable; construct with New.
type Cipher struct {
	curve elliptic.Curve
	key   *big.Int
}

// New constructs a cipher. If key is nil, a fresh CSPRNG scalar is drawn.
// If key is provided it must be 32 bytes; it is reduced modulo the curve
// order and rejected if that reduction yields zero.
func New(key []byte) (*Cipher, error) {
	curve := elliptic.P256()

	if key == nil {
		priv, _, _, err := elliptic.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, err
		}
		scalar := new(big.Int).SetBytes(priv)
		return &Cipher{curve: curve, key: scalar}, nil
	}

	scalar := new(big.Int).SetBytes(key)
	scalar.Mod(scalar, curve.Params().N)
	if scalar.Sign() == 0 {
		return nil, errors.New("eccipher: scalar reduces to zero")
	}
	return &Cipher{curve: curve, key: scalar}, nil
}

// PrivateKeyBytes returns the 32-byte big-endian encoding of the scalar.
func (c *Cipher) PrivateKeyBytes() [32]byte {
	var out [32]byte
	c.key.FillBytes(out[:])
	return out
}

// Encrypt maps data to a curve point and multiplies it by the private
// scalar, returning the SEC1 compressed encoding. A 33-byte input that
// parses as a SEC1 compressed point is used as that point directly, so
// encrypting another cipher's output re-encrypts it; any other input is
// hashed to the curve first.
func (c *Cipher) Encrypt(data []byte) ([]byte, error) {
	var x, y *big.Int
	if len(data) == 33 {
		x, y = elliptic.UnmarshalCompressed(c.curve, data)
	}
	if x == nil || y == nil {
		var err error
		x, y, err = c.hashToCurve(data)
		if err != nil {
			return nil, err
		}
	}
	ex, ey := c.curve.ScalarMult(x, y, c.key.Bytes())
	return elliptic.MarshalCompressed(c.curve, ex, ey), nil
}

// Decrypt parses a SEC1 compressed point and multiplies it by the inverse
// of the private scalar, returning the SEC1 compressed result.
func (c *Cipher) Decrypt(compressed []byte) ([]byte, error) {
	x, y := elliptic.UnmarshalCompressed(c.curve, compressed)
	if x == nil || y == nil {
		return nil, ErrInvalidPoint
	}

	inv := new(big.Int).ModInverse(c.key, c.curve.Params().N)
	if inv == nil {
		return nil, errors.New("eccipher: private key has no inverse")
	}

	dx, dy := c.curve.ScalarMult(x, y, inv.Bytes())
	return elliptic.MarshalCompressed(c.curve, dx, dy), nil
}

// hashToCurve deterministically maps data to a non-identity point on
// y² = x³ + a·x + b (mod p) via try-and-increment, using randomOracle to
// pick each candidate x-coordinate.
func (c *Cipher) hashToCurve(data []byte) (*big.Int, *big.Int, error) {
	data = truncateAtZero(data)

	x, err := randomOracle(data, curveP)
	if err != nil {
		return nil, nil, err
	}

	for {
		modX := new(big.Int).Mod(x, curveP)

		rhs := new(big.Int).Mul(modX, modX)
		rhs.Mul(rhs, modX)
		ax := new(big.Int).Mul(curveA, modX)
		rhs.Add(rhs, ax)
		rhs.Add(rhs, curveB)
		rhs.Mod(rhs, curveP)

		if sqrt, ok := modSqrt(rhs, curveP); ok {
			y := sqrt
			if y.Bit(0) == 1 {
				y = new(big.Int).Sub(curveP, sqrt)
			}

			if c.curve.IsOnCurve(modX, y) {
				return new(big.Int).Set(modX), y, nil
			}
		}

		x, err = randomOracle(x.Bytes(), curveP)
		if err != nil {
			return nil, nil, err
		}
	}
}

// randomOracle implements the random-oracle-to-[0,max) construction: it
// strings together enough SHA-256 blocks (each keyed by a 1-based counter
// prefix) to cover bits(max)+256 bits, then shifts the excess low-order
// bits off before reducing mod max. This keeps bias from the final mod negligible.
func randomOracle(m []byte, max *big.Int) (*big.Int, error) {
	const hashBits = 256

	outputBits := max.BitLen() + hashBits
	n := (outputBits + hashBits - 1) / hashBits
	if n*hashBits >= 130048 {
		return nil, ErrTooManyRounds
	}
	excess := n*hashBits - outputBits

	acc := new(big.Int)
	for i := 1; i <= n; i++ {
		iBytes := big.NewInt(int64(i)).Bytes()

		h := sha256.New()
		h.Write(iBytes)
		h.Write(m)
		sum := h.Sum(nil)

		acc.Lsh(acc, hashBits)
		acc.Or(acc, new(big.Int).SetBytes(sum))
	}

	acc.Rsh(acc, uint(excess))
	acc.Mod(acc, max)
	return acc, nil
}

// modSqrt computes a square root of ySquared mod p, valid only for primes
// p ≡ 3 (mod 4) — true for the P-256 field prime. Other primes would need
// Tonelli-Shanks and are not supported.
func modSqrt(ySquared, p *big.Int) (*big.Int, bool) {
	rem := new(big.Int).Mod(p, four)
	if rem.Cmp(three) != 0 {
		return nil, false
	}

	exp := new(big.Int).Add(p, big.NewInt(1))
	exp.Rsh(exp, 2)

	sqrt := new(big.Int).Exp(ySquared, exp, p)

	check := new(big.Int).Mul(sqrt, sqrt)
	check.Mod(check, p)

	want := new(big.Int).Mod(ySquared, p)
	if check.Cmp(want) == 0 {
		return sqrt, true
	}
	return nil, false
}

func truncateAtZero(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
