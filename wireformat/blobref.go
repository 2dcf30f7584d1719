package wireformat

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// BlobRefKind distinguishes a reference to an offset within the
// decoding metadata blob itself (Local) from a reference into some
// other, digest-named blob (Other).
type BlobRefKind uint8

const (
	KindLocal BlobRefKind = iota
	KindOther
)

// blobRefSize is the fixed on-wire payload size of a BlobRef: an
// 8-byte little-endian offset, a 1-byte kind/flags byte, and a 32-byte
// digest (unused, and zeroed, for Local references).
const blobRefSize = 8 + 1 + 32

const compressedBit = 1 << 7

// BlobRef names a byte range within a blob, plus flags. Digest is only
// meaningful when Kind is KindOther.
type BlobRef struct {
	Offset     uint64
	Kind       BlobRefKind
	Digest     [32]byte
	Compressed bool
}

var (
	_ cbor.Marshaler   = BlobRef{}
	_ cbor.Unmarshaler = (*BlobRef)(nil)
)

// marshalFixed renders b's 41-byte fixed layout, without any CBOR
// framing. Used both by MarshalCBOR (which wraps it in a byte string)
// and by Inode, which embeds a BlobRef's raw bytes inline rather than
// as a separately framed value.
func (b BlobRef) marshalFixed() []byte {
	buf := make([]byte, blobRefSize)
	binary.LittleEndian.PutUint64(buf[0:8], b.Offset)

	flags := uint8(b.Kind)
	if b.Compressed {
		flags |= compressedBit
	}
	buf[8] = flags

	if b.Kind == KindOther {
		copy(buf[9:41], b.Digest[:])
	}

	return buf
}

// unmarshalFixed parses raw as a 41-byte fixed BlobRef layout.
func (b *BlobRef) unmarshalFixed(raw []byte) error {
	if len(raw) != blobRefSize {
		return fmt.Errorf("%w: blob ref: invalid length %d", ErrInvalidSerializedData, len(raw))
	}

	b.Offset = binary.LittleEndian.Uint64(raw[0:8])
	b.Compressed = raw[8]&compressedBit != 0

	switch raw[8] &^ compressedBit {
	case uint8(KindLocal):
		b.Kind = KindLocal
		b.Digest = [32]byte{}
	case uint8(KindOther):
		b.Kind = KindOther
		copy(b.Digest[:], raw[9:41])
	default:
		return fmt.Errorf("%w: bad blob ref kind %d", ErrInvalidSerializedData, raw[8])
	}

	return nil
}

// MarshalCBOR encodes b as a 41-byte CBOR byte string.
func (b BlobRef) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(b.marshalFixed())
}

// UnmarshalCBOR decodes a 41-byte CBOR byte string into b.
func (b *BlobRef) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: blob ref: %w", ErrInvalidSerializedData, err)
	}
	return b.unmarshalFixed(raw)
}
