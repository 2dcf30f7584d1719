package puzzlefs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/puzzlefs/go-puzzlefs"
	"github.com/puzzlefs/go-puzzlefs/image"
	"github.com/puzzlefs/go-puzzlefs/internal/testutil"
	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

// buildWhiteoutImage builds a two-layer image: the base layer has a
// root directory with entries a.txt (ino 2) and b.txt (ino 3); the top
// layer shadows b.txt with a whiteout and adds c.txt (ino 4).
func buildWhiteoutImage(t *testing.T) (*image.Image, string) {
	t.Helper()

	tImg := testutil.NewImage()

	// Base layer (bottom of stack).
	base := testutil.NewMetadataBuilder()
	baseRootOff, err := base.AddDirList(wireformat.DirList{
		Entries: []wireformat.DirEnt{
			{Ino: 2, Name: []byte("a.txt")},
			{Ino: 3, Name: []byte("b.txt")},
		},
	})
	require.NoError(t, err)
	base.AddInode(wireformat.Inode{Ino: 1, Mode: wireformat.InodeMode{Tag: wireformat.ModeDir, Offset: baseRootOff}, Permissions: 0o755}, true, false)
	base.AddInode(wireformat.Inode{Ino: 2, Mode: wireformat.InodeMode{Tag: wireformat.ModeReg}, Permissions: 0o644}, false, false)
	base.AddInode(wireformat.Inode{Ino: 3, Mode: wireformat.InodeMode{Tag: wireformat.ModeReg}, Permissions: 0o644}, false, false)
	baseBuf, err := base.Bytes()
	require.NoError(t, err)
	baseHex := tImg.AddBlob(baseBuf)

	// Top layer.
	top := testutil.NewMetadataBuilder()
	topRootOff, err := top.AddDirList(wireformat.DirList{
		LookBelow: true,
		Entries: []wireformat.DirEnt{
			{Ino: 3, Name: []byte("b.txt")}, // whiteout placeholder
			{Ino: 4, Name: []byte("c.txt")},
		},
	})
	require.NoError(t, err)
	top.AddInode(wireformat.Inode{Ino: 1, Mode: wireformat.InodeMode{Tag: wireformat.ModeDir, Offset: topRootOff}, Permissions: 0o755}, true, false)
	top.AddInode(wireformat.Inode{Ino: 3, Mode: wireformat.InodeMode{Tag: wireformat.ModeWht}}, false, false)
	top.AddInode(wireformat.Inode{Ino: 4, Mode: wireformat.InodeMode{Tag: wireformat.ModeReg}, Permissions: 0o644}, false, false)
	topBuf, err := top.Bytes()
	require.NoError(t, err)
	topHex := tImg.AddBlob(topBuf)

	rootfsHex, err := tImg.AddRootfs([]string{topHex, baseHex})
	require.NoError(t, err)

	img, err := image.Open(tImg.FS())
	require.NoError(t, err)

	return img, rootfsHex
}

func TestPuzzleFS_Whiteout(t *testing.T) {
	img, rootfsHex := buildWhiteoutImage(t)

	pfs, err := puzzlefs.Open(img, rootfsHex)
	require.NoError(t, err)

	_, err = pfs.FindInode(3)
	require.ErrorIs(t, err, puzzlefs.ErrNotExist)
}

func TestPuzzleFS_ReadDir_FullMerge(t *testing.T) {
	img, rootfsHex := buildWhiteoutImage(t)

	pfs, err := puzzlefs.Open(img, rootfsHex)
	require.NoError(t, err)

	entries, err := pfs.ReadDir(1)
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = string(e.Name)
	}
	require.Equal(t, []string{"a.txt", "c.txt"}, names)
}

func TestPuzzleFS_FindInode_UnknownLayerDoesNotExist(t *testing.T) {
	img, rootfsHex := buildWhiteoutImage(t)

	pfs, err := puzzlefs.Open(img, rootfsHex)
	require.NoError(t, err)

	_, err = pfs.FindInode(999)
	require.ErrorIs(t, err, puzzlefs.ErrNotExist)
}
