// Package checker implements the single-credential check pipeline: hash,
// blind, and query the oracle.
package checker

import (
	"context"
	"fmt"

	"github.com/lkeld/leakcheck-core/internal/eccipher"
	"github.com/lkeld/leakcheck-core/internal/hashing"
	"github.com/lkeld/leakcheck-core/internal/oracle"
)

// Service ties together the process-wide blinding cipher and the oracle
// client to check individual credentials. The cipher's key never changes
// after construction, so unlike a mutable cipher it needs no lock to share
// across concurrent checks.
type Service struct {
	cipher *eccipher.Cipher
	oracle *oracle.Client
}

// New constructs a checker bound to the given oracle client, using the
// protocol's fixed all-ones blinding key.
func New(oracleClient *oracle.Client) (*Service, error) {
	cipher, err := eccipher.New(eccipher.AllOnesKey())
	if err != nil {
		return nil, fmt.Errorf("checker: constructing cipher: %w", err)
	}
	return &Service{cipher: cipher, oracle: oracleClient}, nil
}

// CheckSingleCredential hashes username/password, blinds the result, and
// asks the oracle whether it has been seen in a breach.
func (s *Service) CheckSingleCredential(ctx context.Context, username, password string) (bool, error) {
	lookupHash, err := hashing.ScryptHash(username, password)
	if err != nil {
		return false, fmt.Errorf("checker: hashing credential: %w", err)
	}
	lookupHash = hashing.TruncateAtZero(lookupHash)

	encrypted, err := s.cipher.Encrypt(lookupHash)
	if err != nil {
		return false, fmt.Errorf("checker: encrypting lookup hash: %w", err)
	}

	return s.oracle.CheckCredential(ctx, username, encrypted, s.cipher)
}
