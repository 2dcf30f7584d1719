package wireformat

import "github.com/fxamacker/cbor/v2"

// DirEnt is one entry in a directory listing.
type DirEnt struct {
	_    struct{} `cbor:",toarray"`
	Ino  uint64
	Name []byte
}

// DirList is the variable-length directory listing a Dir inode's mode
// offset points at. LookBelow signals that this directory also
// inherits entries of the same inode number from the next lower
// layer.
type DirList struct {
	_         struct{} `cbor:",toarray"`
	LookBelow bool
	Entries   []DirEnt
}

// FileChunk names a contiguous byte range, within some blob, that
// contributes Len bytes to a file's contents. An ordered []FileChunk
// reassembles a file by concatenation.
type FileChunk struct {
	_    struct{} `cbor:",toarray"`
	Blob BlobRef
	Len  uint64
}

// Xattr is a single extended attribute.
type Xattr struct {
	_   struct{} `cbor:",toarray"`
	Key []byte
	Val []byte
}

// InodeAdditional holds the side data an inode's Additional BlobRef
// points at: extended attributes and, for symlinks, the link target.
// It is absent (no Additional BlobRef at all) when both are empty.
type InodeAdditional struct {
	_             struct{} `cbor:",toarray"`
	Xattrs        []Xattr
	SymlinkTarget []byte
}

// Rootfs is the top-level manifest naming a PuzzleFS image's layer
// stack. Metadatas lists the metadata blobs composing the image, base
// layer last. FsVerityData is reserved and never inspected.
type Rootfs struct {
	_               struct{} `cbor:",toarray"`
	Metadatas       []BlobRef
	FsVerityData    cbor.RawMessage
	ManifestVersion uint64
}
