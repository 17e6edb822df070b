package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalEventData re-encodes a payload with sorted keys and returns it
// with its SHA-256 hex digest. Two payloads that differ only in key order or
// whitespace hash the same.
func CanonicalEventData(raw []byte) ([]byte, string, error) {
	data, err := DecodeEventData(raw)
	if err != nil {
		return nil, "", err
	}
	canonical, err := json.Marshal(map[string]any(data))
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(canonical)
	return canonical, hex.EncodeToString(sum[:]), nil
}
