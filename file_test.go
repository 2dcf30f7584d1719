package puzzlefs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/puzzlefs/go-puzzlefs"
	"github.com/puzzlefs/go-puzzlefs/digest"
	"github.com/puzzlefs/go-puzzlefs/image"
	"github.com/puzzlefs/go-puzzlefs/internal/testutil"
	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

func buildSingleLayerImage(t *testing.T, build func(b *testutil.MetadataBuilder, tImg *testutil.Image)) (*image.Image, string) {
	t.Helper()

	tImg := testutil.NewImage()
	b := testutil.NewMetadataBuilder()
	build(b, tImg)

	buf, err := b.Bytes()
	require.NoError(t, err)
	metaHex := tImg.AddBlob(buf)

	rootfsHex, err := tImg.AddRootfs([]string{metaHex})
	require.NoError(t, err)

	img, err := image.Open(tImg.FS())
	require.NoError(t, err)

	return img, rootfsHex
}

func TestFile_ReadAt_TwoChunkBoundary(t *testing.T) {
	img, rootfsHex := buildSingleLayerImage(t, func(b *testutil.MetadataBuilder, tImg *testutil.Image) {
		firstHex := tImg.AddBlob([]byte("hello "))
		secondHex := tImg.AddBlob([]byte("world!"))

		firstDigest, err := digest.Parse(firstHex)
		require.NoError(t, err)
		secondDigest, err := digest.Parse(secondHex)
		require.NoError(t, err)

		off, err := b.AddFileChunks([]wireformat.FileChunk{
			{Blob: wireformat.BlobRef{Kind: wireformat.KindOther, Digest: firstDigest}, Len: 6},
			{Blob: wireformat.BlobRef{Kind: wireformat.KindOther, Digest: secondDigest}, Len: 6},
		})
		require.NoError(t, err)

		b.AddInode(wireformat.Inode{Ino: 1, Mode: wireformat.InodeMode{Tag: wireformat.ModeReg, Offset: off}, Permissions: 0o644}, true, false)
	})

	pfs, err := puzzlefs.Open(img, rootfsHex)
	require.NoError(t, err)

	f, err := pfs.Open(1)
	require.NoError(t, err)
	require.Equal(t, int64(12), f.Size())

	// A read that starts mid-way through the first chunk and ends
	// mid-way through the second exercises the boundary walk.
	buf := make([]byte, 4)
	n, err := f.ReadAt(buf, 4)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, "o wo", string(buf))

	whole := make([]byte, 12)
	n, err = f.ReadAt(whole, 0)
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.Equal(t, "hello world!", string(whole))
}

func TestFile_Open_RejectsNonRegular(t *testing.T) {
	img, rootfsHex := buildSingleLayerImage(t, func(b *testutil.MetadataBuilder, tImg *testutil.Image) {
		b.AddInode(wireformat.Inode{Ino: 1, Mode: wireformat.InodeMode{Tag: wireformat.ModeDir}, Permissions: 0o755}, false, false)
	})

	pfs, err := puzzlefs.Open(img, rootfsHex)
	require.NoError(t, err)

	_, err = pfs.Open(1)
	require.ErrorIs(t, err, puzzlefs.ErrNotRegularFile)
}

func TestFile_ReadAt_CompressedChunkUnsupported(t *testing.T) {
	img, rootfsHex := buildSingleLayerImage(t, func(b *testutil.MetadataBuilder, tImg *testutil.Image) {
		blobHex := tImg.AddBlob([]byte("zzz"))
		d, err := digest.Parse(blobHex)
		require.NoError(t, err)

		off, err := b.AddFileChunks([]wireformat.FileChunk{
			{Blob: wireformat.BlobRef{Kind: wireformat.KindOther, Digest: d, Compressed: true}, Len: 3},
		})
		require.NoError(t, err)

		b.AddInode(wireformat.Inode{Ino: 1, Mode: wireformat.InodeMode{Tag: wireformat.ModeReg, Offset: off}, Permissions: 0o644}, true, false)
	})

	pfs, err := puzzlefs.Open(img, rootfsHex)
	require.NoError(t, err)

	f, err := pfs.Open(1)
	require.NoError(t, err)

	_, err = f.ReadAt(make([]byte, 3), 0)
	require.ErrorIs(t, err, wireformat.ErrUnsupported)
}
