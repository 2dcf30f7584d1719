package wireformat

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// decodeOne decodes a single CBOR value from the front of data,
// ignoring any trailing bytes. This mirrors the original format's
// "streaming deserializer, read only one value" trick: every side-data
// slot in a metadata blob is a suffix of the blob's buffer, not an
// isolated byte range, so the decoder must stop after one value
// instead of complaining about what follows it.
func decodeOne[T any](data []byte) (T, error) {
	var v T
	dec := cbor.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, ErrValueMissing
		}
		return v, fmt.Errorf("%w: %w", ErrInvalidSerializedData, err)
	}
	return v, nil
}

// DecodeInode decodes a single fixed-stride Inode record from the
// front of data.
func DecodeInode(data []byte) (Inode, error) { return decodeOne[Inode](data) }

// DecodeBlobRef decodes a single BlobRef from the front of data.
func DecodeBlobRef(data []byte) (BlobRef, error) { return decodeOne[BlobRef](data) }

// DecodeFileChunkList decodes the ordered chunk list beginning at the
// front of data.
func DecodeFileChunkList(data []byte) ([]FileChunk, error) { return decodeOne[[]FileChunk](data) }

// DecodeDirList decodes the DirList beginning at the front of data.
func DecodeDirList(data []byte) (DirList, error) { return decodeOne[DirList](data) }

// DecodeInodeAdditional decodes the InodeAdditional beginning at the
// front of data.
func DecodeInodeAdditional(data []byte) (InodeAdditional, error) {
	return decodeOne[InodeAdditional](data)
}

// DecodeRootfs decodes a Rootfs manifest from data.
func DecodeRootfs(data []byte) (Rootfs, error) { return decodeOne[Rootfs](data) }
