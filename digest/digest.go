// Package digest implements the fixed-size content identifier used to
// name blobs in a PuzzleFS image: a 32-byte SHA-256 hash, displayed as
// 64 lowercase hex characters.
package digest

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

// Size is the length, in bytes, of a digest.
const Size = 32

// ErrInvalidLength is returned when a hex string is not exactly
// 2*Size characters long.
var ErrInvalidLength = errors.New("digest: hex string must be exactly 64 characters")

// Digest is a 32-byte SHA-256 identifier.
type Digest [Size]byte

// Parse decodes a 64-character hex string into a Digest. Any other
// length is rejected as a format error, matching the on-disk
// requirement that blob paths are exactly 64 hex characters.
func Parse(s string) (Digest, error) {
	if len(s) != Size*2 {
		return Digest{}, fmt.Errorf("%w: got %d characters", ErrInvalidLength, len(s))
	}

	var d Digest
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Digest{}, fmt.Errorf("%w: %w", ErrInvalidLength, err)
	}
	return d, nil
}

// FromBlobRef converts a wire-format BlobRef that names another blob
// (Kind == KindOther) into a Digest. A Local blob reference has no
// digest of its own and cannot be converted.
func FromBlobRef(b wireformat.BlobRef) (Digest, error) {
	if b.Kind != wireformat.KindOther {
		return Digest{}, wireformat.ErrLocalRef
	}
	return Digest(b.Digest), nil
}

// String renders d as 64 lowercase hex characters.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// CString renders d as 64 lowercase hex characters followed by a
// trailing NUL. The original kernel module needs this for its C-string
// interop when building blob paths; this port keeps it for symmetry
// with call sites that build blob paths from a digest, even though Go
// strings carry their own length and never need the terminator.
func (d Digest) CString() string {
	return d.String() + "\x00"
}
