package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenerateKey derives a deterministic key for (prefix, payload). The payload is
// round-tripped through a generic JSON form so object keys are sorted at every
// depth, which makes the key independent of field order.
func GenerateKey(prefix string, payload any) string {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		canonical = []byte(fmt.Sprintf("%#v", payload))
	}
	sum := sha256.Sum256(canonical)
	return prefix + "_" + hex.EncodeToString(sum[:])
}

func canonicalJSON(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	// encoding/json writes map keys in sorted order.
	return json.Marshal(generic)
}
