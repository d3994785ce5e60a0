package identifier

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// DefaultLength is the token length used for device and entity identifiers.
const DefaultLength = 32

// minDigestSize is the minimum number of hash bytes read, regardless of length.
const minDigestSize = 16

// namespaceSeparator is the ASCII unit separator. It never appears in
// ordinary text, so "a"+"bc" and "ab"+"c" cannot collide.
const namespaceSeparator = "\x1f"

// ErrInvalidLength is returned when the requested token length is below 1.
var ErrInvalidLength = errors.New("identifier: length must be >= 1")

// Derive returns a deterministic base64url token of exactly length characters.
//
// When namespace is non-empty it is joined to seed with a non-printable
// separator before hashing. The hash is BLAKE3 in extendable-output mode, read
// for enough bytes to cover length base64 characters.
func Derive(seed string, length int, namespace string) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}

	if namespace != "" {
		seed = namespace + namespaceSeparator + seed
	}
	seed = strings.TrimSpace(seed)

	digestSize := max(minDigestSize, (length*3+3)/4)
	raw := make([]byte, digestSize)

	h := blake3.New()
	_, _ = h.Write([]byte(seed))
	if _, err := h.Digest().Read(raw); err != nil {
		return "", fmt.Errorf("identifier: reading digest: %w", err)
	}

	enc := base64.RawURLEncoding.EncodeToString(raw)
	return enc[:length], nil
}

// MustDerive is like Derive but panics on an invalid length.
// Intended for package-level constants and tests with fixed lengths.
func MustDerive(seed string, length int, namespace string) string {
	id, err := Derive(seed, length, namespace)
	if err != nil {
		panic(err)
	}
	return id
}
