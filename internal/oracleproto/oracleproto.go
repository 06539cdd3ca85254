// Package oracleproto implements the wire codec for the two protobuf
// messages exchanged with the breach oracle: LookupSingleLeakRequest and
// LookupSingleLeakResponse. Rather than depend on generated .pb.go stubs,
// it encodes/decodes directly against the protobuf wire format using
// google.golang.org/protobuf's low-level field primitives — the message
// shape is small and fixed, and the wire-format package is the standard
// vehicle for that in the Go ecosystem.
package oracleproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers per the oracle's LookupSingleLeakRequest/Response contract.
const (
	fieldUsernameHashPrefix       = 1
	fieldUsernameHashPrefixLength = 2
	fieldEncryptedLookupHash      = 3

	fieldReencryptedLookupHash    = 1
	fieldEncryptedLeakMatchPrefix = 2
)

// LookupSingleLeakRequest is the request sent to the oracle.
type LookupSingleLeakRequest struct {
	UsernameHashPrefix       []byte
	UsernameHashPrefixLength int32
	EncryptedLookupHash      []byte
}

// Marshal encodes the request in protobuf wire format.
func (r *LookupSingleLeakRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldUsernameHashPrefix, protowire.BytesType)
	b = protowire.AppendBytes(b, r.UsernameHashPrefix)
	b = protowire.AppendTag(b, fieldUsernameHashPrefixLength, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.UsernameHashPrefixLength))
	b = protowire.AppendTag(b, fieldEncryptedLookupHash, protowire.BytesType)
	b = protowire.AppendBytes(b, r.EncryptedLookupHash)
	return b
}

// LookupSingleLeakResponse is the response returned by the oracle.
type LookupSingleLeakResponse struct {
	ReencryptedLookupHash     []byte
	EncryptedLeakMatchPrefix [][]byte
}

// Unmarshal decodes a LookupSingleLeakResponse from protobuf wire format.
func Unmarshal(data []byte) (*LookupSingleLeakResponse, error) {
	resp := &LookupSingleLeakResponse{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("oracleproto: invalid tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldReencryptedLookupHash && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("oracleproto: invalid reencrypted_lookup_hash: %w", protowire.ParseError(n))
			}
			resp.ReencryptedLookupHash = append([]byte(nil), v...)
			data = data[n:]

		case num == fieldEncryptedLeakMatchPrefix && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("oracleproto: invalid encrypted_leak_match_prefix: %w", protowire.ParseError(n))
			}
			resp.EncryptedLeakMatchPrefix = append(resp.EncryptedLeakMatchPrefix, append([]byte(nil), v...))
			data = data[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("oracleproto: invalid field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	return resp, nil
}
