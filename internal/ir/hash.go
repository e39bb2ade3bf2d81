package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows changing the
// hashed shape without colliding with old hashes.
const (
	DomainRecord  = "isissync/record/v1"
	DomainPayload = "isissync/payload/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordHash returns the content hash of a normalized record and its
// canonical encoding.
func RecordHash(rec Object) (string, []byte, error) {
	canonical, err := MarshalCanonical(rec)
	if err != nil {
		return "", nil, fmt.Errorf("record hash: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), canonical, nil
}

// PayloadHash returns the content hash of a catalog payload.
func PayloadHash(payload []byte) string {
	return hashWithDomain(DomainPayload, payload)
}
