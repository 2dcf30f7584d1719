package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/puzzlefs/go-puzzlefs/internal/testutil"
	"github.com/puzzlefs/go-puzzlefs/metadata"
	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

func buildSingleRegFile(t *testing.T, chunks []wireformat.FileChunk) (*metadata.Blob, uint64) {
	t.Helper()

	b := testutil.NewMetadataBuilder()
	off, err := b.AddFileChunks(chunks)
	require.NoError(t, err)

	const ino = 2
	b.AddInode(wireformat.Inode{
		Ino:         ino,
		Mode:        wireformat.InodeMode{Tag: wireformat.ModeReg, Offset: off},
		Permissions: 0o644,
	}, true, false)

	buf, err := b.Bytes()
	require.NoError(t, err)

	blob, err := metadata.New(buf)
	require.NoError(t, err)
	return blob, ino
}

func TestFindInode_SingleRecord(t *testing.T) {
	blob, ino := buildSingleRegFile(t, []wireformat.FileChunk{
		{Blob: wireformat.BlobRef{Kind: wireformat.KindOther, Digest: [32]byte{1}}, Len: 4},
	})

	got, ok, err := blob.FindInode(ino)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ino, got.Ino)
	require.Equal(t, wireformat.ModeReg, got.Mode.Tag)
}

func TestFindInode_NotFound(t *testing.T) {
	blob, _ := buildSingleRegFile(t, nil)

	_, ok, err := blob.FindInode(999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFindInode_BinarySearch1000(t *testing.T) {
	b := testutil.NewMetadataBuilder()

	const n = 1000
	for i := 0; i < n; i++ {
		ino := uint64(i + 1) // 1..1000, ascending
		b.AddInode(wireformat.Inode{
			Ino:         ino,
			Mode:        wireformat.InodeMode{Tag: wireformat.ModeReg, Offset: 0},
			Permissions: 0o644,
		}, false, false)
	}

	buf, err := b.Bytes()
	require.NoError(t, err)

	blob, err := metadata.New(buf)
	require.NoError(t, err)
	require.Equal(t, n, blob.InodeCount)

	// Spot-check the boundaries, including ino==1 (the first record,
	// found at mid==0) and a handful of interior values. The mid==0
	// underflow guard is exercised by FindInode(0) below.
	for _, ino := range []uint64{1, 2, 500, 999, 1000} {
		got, ok, err := blob.FindInode(ino)
		require.NoError(t, err)
		require.True(t, ok, "ino %d", ino)
		require.Equal(t, ino, got.Ino)
	}

	_, ok, err := blob.FindInode(0)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = blob.FindInode(1001)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadDirList(t *testing.T) {
	b := testutil.NewMetadataBuilder()

	dirOff, err := b.AddDirList(wireformat.DirList{
		Entries: []wireformat.DirEnt{
			{Ino: 2, Name: []byte("a")},
			{Ino: 3, Name: []byte("b")},
		},
	})
	require.NoError(t, err)

	b.AddInode(wireformat.Inode{
		Ino:         1,
		Mode:        wireformat.InodeMode{Tag: wireformat.ModeDir, Offset: dirOff},
		Permissions: 0o755,
	}, true, false)

	buf, err := b.Bytes()
	require.NoError(t, err)

	blob, err := metadata.New(buf)
	require.NoError(t, err)

	inode, ok, err := blob.FindInode(1)
	require.NoError(t, err)
	require.True(t, ok)

	list, err := blob.ReadDirList(inode.Mode.Offset)
	require.NoError(t, err)
	require.False(t, list.LookBelow)
	require.Len(t, list.Entries, 2)
	require.Equal(t, "a", string(list.Entries[0].Name))
}

func TestReadInodeAdditional_RejectsNonLocal(t *testing.T) {
	blob, _ := buildSingleRegFile(t, nil)

	_, err := blob.ReadInodeAdditional(wireformat.BlobRef{Kind: wireformat.KindOther})
	require.ErrorIs(t, err, wireformat.ErrSeekOther)
}

func TestNew_RejectsOverrunTable(t *testing.T) {
	_, err := metadata.New(wireformat.EncodeListHeader(5))
	require.ErrorIs(t, err, wireformat.ErrInvalidSerializedData)
}

func TestNew_RejectsEmptyBuffer(t *testing.T) {
	_, err := metadata.New(nil)
	require.ErrorIs(t, err, wireformat.ErrInvalidSerializedData)
}
