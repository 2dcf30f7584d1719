// Package metadata parses a single metadata blob: a leading inode-count
// header followed by a fixed-stride, inode-number-sorted table of
// Inode records, each individually framed as its own CBOR byte string
// so the table supports binary search without decoding every entry.
package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

// Blob is a parsed metadata blob. It owns buf and never mutates it;
// all methods are safe for concurrent use.
type Blob struct {
	buf        []byte
	InodeCount int
	tableStart int
}

// New parses buf's leading header and validates that the inode table
// it announces fits within buf. It does not decode any inode record;
// those are decoded lazily by FindInode and friends.
func New(buf []byte) (*Blob, error) {
	count, headerLen, err := decodeLeadingCount(buf)
	if err != nil {
		return nil, err
	}

	tableEnd := headerLen + count*wireformat.InodeWireSize
	if tableEnd > len(buf) {
		return nil, fmt.Errorf("%w: inode table of %d records overruns %d-byte blob",
			wireformat.ErrInvalidSerializedData, count, len(buf))
	}

	return &Blob{buf: buf, InodeCount: count, tableStart: headerLen}, nil
}

// decodeLeadingCount parses the raw CBOR array-header bytes at the
// front of buf, returning the announced element count and the header's
// byte length. This is the inverse of wireformat.EncodeListHeader: the
// header is a real CBOR array major-type byte plus length-encoding
// tail, but nothing that follows it is a nested CBOR array, so a
// general-purpose CBOR decoder cannot be used to peel it off: it
// would try to decode count further array elements.
func decodeLeadingCount(buf []byte) (count int, headerLen int, err error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("%w: empty metadata blob", wireformat.ErrInvalidSerializedData)
	}

	first := buf[0]
	if first&0xe0 != 0x80 {
		return 0, 0, fmt.Errorf("%w: metadata blob does not begin with an array header",
			wireformat.ErrInvalidSerializedData)
	}

	info := first & 0x1f
	switch {
	case info <= 23:
		return int(info), 1, nil
	case info == 24:
		if len(buf) < 2 {
			return 0, 0, fmt.Errorf("%w: truncated array header", wireformat.ErrInvalidSerializedData)
		}
		return int(buf[1]), 2, nil
	case info == 25:
		if len(buf) < 3 {
			return 0, 0, fmt.Errorf("%w: truncated array header", wireformat.ErrInvalidSerializedData)
		}
		return int(binary.BigEndian.Uint16(buf[1:3])), 3, nil
	case info == 26:
		if len(buf) < 5 {
			return 0, 0, fmt.Errorf("%w: truncated array header", wireformat.ErrInvalidSerializedData)
		}
		return int(binary.BigEndian.Uint32(buf[1:5])), 5, nil
	case info == 27:
		if len(buf) < 9 {
			return 0, 0, fmt.Errorf("%w: truncated array header", wireformat.ErrInvalidSerializedData)
		}
		return int(binary.BigEndian.Uint64(buf[1:9])), 9, nil
	default:
		return 0, 0, fmt.Errorf("%w: unsupported array header additional info %d",
			wireformat.ErrInvalidSerializedData, info)
	}
}

// recordAt decodes the k'th table record, 0-indexed.
func (b *Blob) recordAt(k int) (wireformat.Inode, error) {
	start := b.tableStart + k*wireformat.InodeWireSize
	end := start + wireformat.InodeWireSize
	return wireformat.DecodeInode(b.buf[start:end])
}

// FindInode binary-searches the table for ino, exploiting it being
// sorted ascending by inode number. ok is false, with a nil error, when
// the table simply does not contain ino; a non-nil error only signals a
// malformed record.
func (b *Blob) FindInode(ino uint64) (inode wireformat.Inode, ok bool, err error) {
	if b.InodeCount == 0 {
		return wireformat.Inode{}, false, nil
	}

	left, right := 0, b.InodeCount-1
	for left <= right {
		mid := left + (right-left)/2

		rec, err := b.recordAt(mid)
		if err != nil {
			return wireformat.Inode{}, false, err
		}

		switch {
		case rec.Ino == ino:
			return rec, true, nil
		case rec.Ino < ino:
			left = mid + 1
		default: // rec.Ino > ino
			if mid == 0 {
				// mid-1 would underflow; there is nowhere lower to look.
				return wireformat.Inode{}, false, nil
			}
			right = mid - 1
		}
	}

	return wireformat.Inode{}, false, nil
}

// ReadFileChunks decodes the ordered chunk list for a Reg inode whose
// mode offset is offset.
func (b *Blob) ReadFileChunks(offset uint64) ([]wireformat.FileChunk, error) {
	data, err := b.sliceFrom(offset)
	if err != nil {
		return nil, err
	}
	return wireformat.DecodeFileChunkList(data)
}

// ReadDirList decodes the directory listing for a Dir inode whose mode
// offset is offset.
func (b *Blob) ReadDirList(offset uint64) (wireformat.DirList, error) {
	data, err := b.sliceFrom(offset)
	if err != nil {
		return wireformat.DirList{}, err
	}
	return wireformat.DecodeDirList(data)
}

// ReadInodeAdditional decodes the InodeAdditional side data ref points
// at. ref must be a Local reference: additional data always lives in
// the same metadata blob as the inode that references it.
func (b *Blob) ReadInodeAdditional(ref wireformat.BlobRef) (wireformat.InodeAdditional, error) {
	if ref.Kind != wireformat.KindLocal {
		return wireformat.InodeAdditional{}, wireformat.ErrSeekOther
	}
	data, err := b.sliceFrom(ref.Offset)
	if err != nil {
		return wireformat.InodeAdditional{}, err
	}
	return wireformat.DecodeInodeAdditional(data)
}

// sliceFrom returns the portion of buf beginning at offset, bounds
// checked so a malformed or adversarial offset cannot panic.
func (b *Blob) sliceFrom(offset uint64) ([]byte, error) {
	if offset > uint64(len(b.buf)) {
		return nil, fmt.Errorf("%w: offset %d beyond %d-byte blob",
			wireformat.ErrInvalidSerializedData, offset, len(b.buf))
	}
	return b.buf[offset:], nil
}
