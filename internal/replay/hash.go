// Package replay runs recorded action fixtures against a fresh engine and
// fingerprints the resulting snapshot.
package replay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

// Stringify serializes v as JSON with every object's keys sorted, at any
// depth. Numbers keep their original textual form.
func Stringify(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal value")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return nil, errors.Wrap(err, "failed to decode value")
	}

	// encoding/json writes map keys in sorted order
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(generic); err != nil {
		return nil, errors.Wrap(err, "failed to encode value")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Hash returns the hex sha256 of the stable serialization of v.
func Hash(v any) (string, error) {
	serialized, err := Stringify(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:]), nil
}
