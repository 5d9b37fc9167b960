package utils

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DerivePaymentID hashes the creation inputs into a bytes32 identifier.
// createdAt is taken at millisecond precision.
func DerivePaymentID(merchant, token, amount string, createdAt time.Time, salt string) string {
	preimage := fmt.Sprintf("%s-%s-%s-%d-%s", merchant, token, amount, createdAt.UnixMilli(), salt)
	return crypto.Keccak256Hash([]byte(preimage)).Hex()
}

// HashMetadata returns keccak256 of the canonical metadata string.
func HashMetadata(metadata string) common.Hash {
	return crypto.Keccak256Hash([]byte(metadata))
}

// ToBytes32 decodes a 0x-prefixed 32 byte hex string.
func ToBytes32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hexutil.Decode(s)
	if err != nil {
		return out, fmt.Errorf("invalid bytes32 %q: %w", s, err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("invalid bytes32 %q: got %d bytes", s, len(b))
	}
	copy(out[:], b)
	return out, nil
}
