// Package image opens a PuzzleFS image's blob store: a directory tree
// rooted at an io/fs.FS, with every blob content-addressed at
// blobs/sha256/<64-hex-digest>.
package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"

	"github.com/puzzlefs/go-puzzlefs/digest"
	"github.com/puzzlefs/go-puzzlefs/metadata"
	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

// blobsDir is the directory, relative to an image's root, holding
// every content-addressed blob.
const blobsDir = "blobs/sha256"

// Image is an opened blob store. Its methods are read-only and safe
// for concurrent use by multiple goroutines.
type Image struct {
	root fs.FS
}

// Open returns an Image backed by root. root is typically an
// os.DirFS-equivalent rooted at an OCI-style image directory; Open
// does not itself validate that blobsDir exists, since a caller may
// legitimately open an image before any blob has been written.
func Open(root fs.FS) (*Image, error) {
	return &Image{root: root}, nil
}

func blobPath(d digest.Digest) string {
	return path.Join(blobsDir, d.String())
}

// OpenRawBlob opens the blob named by d for reading, without
// interpreting its contents.
func (i *Image) OpenRawBlob(d digest.Digest) (fs.File, error) {
	return i.OpenRawBlobContext(context.Background(), d)
}

// OpenRawBlobContext is OpenRawBlob with a context, honored only for
// an initial cancellation check: a local-disk fs.FS has no way to
// cancel an in-flight Open, but an adapter built over a network or
// FUSE passthrough blob store can honor ctx in its own fs.FS
// implementation.
func (i *Image) OpenRawBlobContext(ctx context.Context, d digest.Digest) (fs.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := blobPath(d)
	slog.Debug("opening blob", "digest", d.String(), "path", p)

	f, err := i.root.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", d, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("blob %s: %w", d, err)
	}
	return f, nil
}

// OpenMetadataBlob opens and parses the metadata blob named by d.
func (i *Image) OpenMetadataBlob(d digest.Digest) (*metadata.Blob, error) {
	f, err := i.OpenRawBlob(d)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading metadata blob %s: %w", d, err)
	}

	return metadata.New(buf)
}

// OpenRootfsBlob opens and decodes the top-level Rootfs manifest named
// by hexDigest.
func (i *Image) OpenRootfsBlob(hexDigest string) (*wireformat.Rootfs, error) {
	d, err := digest.Parse(hexDigest)
	if err != nil {
		return nil, fmt.Errorf("rootfs digest: %w", err)
	}

	f, err := i.OpenRawBlob(d)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading rootfs blob %s: %w", d, err)
	}

	rootfs, err := wireformat.DecodeRootfs(buf)
	if err != nil {
		return nil, err
	}
	return &rootfs, nil
}

// FillFromChunk reads into buf the bytes chunk names, starting
// addlOffset bytes into the chunk (used when a requested read range
// starts partway through the chunk). It returns ErrUnsupported for a
// compressed chunk, since no decompression codec is wired in.
//
// Short reads at the tail of a blob are tolerated rather than treated
// as an error: a chunk's Len may legitimately run up against the end
// of the underlying file.
func (i *Image) FillFromChunk(chunk wireformat.BlobRef, addlOffset uint64, buf []byte) (int, error) {
	if chunk.Compressed {
		return 0, wireformat.ErrUnsupported
	}

	d, err := digest.FromBlobRef(chunk)
	if err != nil {
		return 0, err
	}

	f, err := i.OpenRawBlob(d)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	ra, ok := f.(io.ReaderAt)
	if !ok {
		return 0, fmt.Errorf("blob %s: %T does not support random access", d, f)
	}

	n, err := ra.ReadAt(buf, int64(chunk.Offset+addlOffset))
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("reading blob %s at offset %d: %w", d, chunk.Offset+addlOffset, err)
	}
	return n, nil
}
