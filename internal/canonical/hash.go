package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows changing
// what is hashed without colliding with older fingerprints.
const (
	DomainSnapshot = "berlinreg/snapshot/v1"
)

// Hash returns the hex SHA-256 of domain, a zero byte, and the canonical
// JSON of v. The separator keeps domain and data from running together.
func Hash(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
