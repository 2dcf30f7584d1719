// Package testutil builds synthetic PuzzleFS images in memory, for
// tests that need a metadata blob and a handful of content blobs
// without shipping binary fixture files.
package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing/fstest"

	"github.com/fxamacker/cbor/v2"

	"github.com/puzzlefs/go-puzzlefs/digest"
	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

// MetadataBuilder accumulates Inode records and the variable-length
// side data (DirLists, FileChunk lists, InodeAdditional) their mode
// offsets point at, then emits a single metadata blob buffer.
type MetadataBuilder struct {
	inodes []wireformat.Inode
	// pending marks, by index into inodes, which inodes carry a
	// side-data offset relative to the side buffer rather than an
	// already-absolute one, so Bytes can fix them up once the header
	// and table size are known.
	pendingMode []bool
	pendingAddl []bool
	side        []byte
}

// NewMetadataBuilder returns an empty builder.
func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{}
}

// reserve appends data to the side buffer and returns its offset
// relative to the side buffer's own start.
func (b *MetadataBuilder) reserve(data []byte) uint64 {
	off := uint64(len(b.side))
	b.side = append(b.side, data...)
	return off
}

// AddDirList serializes list and returns a side-buffer-relative
// offset suitable for a Dir inode's Mode.Offset.
func (b *MetadataBuilder) AddDirList(list wireformat.DirList) (uint64, error) {
	data, err := cbor.Marshal(list)
	if err != nil {
		return 0, fmt.Errorf("testutil: encoding dir list: %w", err)
	}
	return b.reserve(data), nil
}

// AddFileChunks serializes chunks and returns a side-buffer-relative
// offset suitable for a Reg inode's Mode.Offset.
func (b *MetadataBuilder) AddFileChunks(chunks []wireformat.FileChunk) (uint64, error) {
	data, err := cbor.Marshal(chunks)
	if err != nil {
		return 0, fmt.Errorf("testutil: encoding file chunks: %w", err)
	}
	return b.reserve(data), nil
}

// AddAdditional serializes add and returns a side-buffer-relative
// offset suitable for a Local BlobRef naming an inode's Additional
// data.
func (b *MetadataBuilder) AddAdditional(add wireformat.InodeAdditional) (uint64, error) {
	data, err := cbor.Marshal(add)
	if err != nil {
		return 0, fmt.Errorf("testutil: encoding inode additional: %w", err)
	}
	return b.reserve(data), nil
}

// AddInode appends an inode record. Callers must add inodes in
// ascending Ino order: the blob's binary search depends on it, exactly
// as a real writer would need to.
//
// modeOffsetIsSideRelative should be true whenever inode.Mode.Offset
// was produced by AddDirList/AddFileChunks on this same builder (Dir
// and Reg inodes); addlOffsetIsSideRelative should be true whenever
// inode.Additional is a Local reference produced by AddAdditional.
func (b *MetadataBuilder) AddInode(inode wireformat.Inode, modeOffsetIsSideRelative, addlOffsetIsSideRelative bool) {
	b.inodes = append(b.inodes, inode)
	b.pendingMode = append(b.pendingMode, modeOffsetIsSideRelative)
	b.pendingAddl = append(b.pendingAddl, addlOffsetIsSideRelative)
}

// Bytes emits the finished metadata blob: a leading array-header count
// of inodes, the fixed-stride inode table, then the side-data region,
// with every side-relative offset fixed up to be relative to the blob
// as a whole.
func (b *MetadataBuilder) Bytes() ([]byte, error) {
	header := wireformat.EncodeListHeader(len(b.inodes))
	base := uint64(len(header) + len(b.inodes)*wireformat.InodeWireSize)

	buf := make([]byte, 0, int(base)+len(b.side))
	buf = append(buf, header...)

	for idx, inode := range b.inodes {
		if b.pendingMode[idx] {
			inode.Mode.Offset += base
		}
		if b.pendingAddl[idx] && inode.Additional != nil {
			inode.Additional.Offset += base
		}

		data, err := inode.MarshalCBOR()
		if err != nil {
			return nil, fmt.Errorf("testutil: encoding inode %d: %w", inode.Ino, err)
		}
		if len(data) != wireformat.InodeWireSize {
			return nil, fmt.Errorf("testutil: inode %d encoded to %d bytes, want %d",
				inode.Ino, len(data), wireformat.InodeWireSize)
		}
		buf = append(buf, data...)
	}

	buf = append(buf, b.side...)
	return buf, nil
}

// Image accumulates content-addressed blobs into an in-memory
// fstest.MapFS laid out the way image.Open expects: blobs/sha256/<hex>.
type Image struct {
	fsys fstest.MapFS
}

// NewImage returns an empty image.
func NewImage() *Image {
	return &Image{fsys: fstest.MapFS{}}
}

// AddBlob stores data under its own digest and returns the hex digest.
func (img *Image) AddBlob(data []byte) string {
	sum := sha256.Sum256(data)
	hexDigest := hex.EncodeToString(sum[:])
	img.fsys["blobs/sha256/"+hexDigest] = &fstest.MapFile{Data: data, Mode: 0o444}
	return hexDigest
}

// FS returns the underlying fs.FS, ready for image.Open.
func (img *Image) FS() fstest.MapFS {
	return img.fsys
}

// AddRootfs encodes and stores a manifest naming metadataHexDigests as
// the layer stack (index 0 first, i.e. top of stack), returning the
// manifest's own hex digest.
func (img *Image) AddRootfs(metadataHexDigests []string) (string, error) {
	refs := make([]wireformat.BlobRef, len(metadataHexDigests))
	for i, h := range metadataHexDigests {
		d, err := digest.Parse(h)
		if err != nil {
			return "", fmt.Errorf("testutil: rootfs layer %d: %w", i, err)
		}
		refs[i] = wireformat.BlobRef{Kind: wireformat.KindOther, Digest: d}
	}

	data, err := cbor.Marshal(wireformat.Rootfs{Metadatas: refs, ManifestVersion: 1})
	if err != nil {
		return "", fmt.Errorf("testutil: encoding rootfs manifest: %w", err)
	}
	return img.AddBlob(data), nil
}
