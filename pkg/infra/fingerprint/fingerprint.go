package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const idPrefix = "fp::"

// Fingerprint identifies a client by the characteristics the gateway is configured to use.
type Fingerprint struct {
	IP        string
	UserAgent string
	Host      string
	values    []string
}

// ID is stable for identical characteristic values and is used as the deny cache key.
func (f Fingerprint) ID() string {
	sum := sha256.Sum256([]byte(strings.Join(f.values, "|")))
	return idPrefix + hex.EncodeToString(sum[:])
}
