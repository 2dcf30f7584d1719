// Package puzzlefs resolves a layered, content-addressed PuzzleFS
// image into a navigable inode hierarchy: a rootfs manifest names an
// ordered stack of metadata blobs, upper layers shadow lower ones, and
// a "whiteout" inode marks a path as deleted regardless of what a
// lower layer still has at that inode number.
package puzzlefs

import (
	"errors"
	"fmt"

	"github.com/google/btree"

	"github.com/puzzlefs/go-puzzlefs/digest"
	"github.com/puzzlefs/go-puzzlefs/image"
	"github.com/puzzlefs/go-puzzlefs/metadata"
	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

var (
	// ErrNotExist is returned when an inode number is not present in
	// any layer, or is shadowed by a whiteout in an upper one.
	ErrNotExist = errors.New("puzzlefs: inode does not exist")

	// ErrNotRegularFile is returned when a file-reading operation is
	// attempted against an inode that is not a regular file.
	ErrNotRegularFile = errors.New("puzzlefs: not a regular file")

	// ErrNotDirectory is returned when a directory operation is
	// attempted against an inode that is not a directory.
	ErrNotDirectory = errors.New("puzzlefs: not a directory")
)

// RootIno is the inode number this port treats as the root of the
// tree. Neither the wire format nor the original kernel module
// specifies how a mount root is discovered; this is a documented
// convention (see DESIGN.md), not a wire-format constant.
const RootIno uint64 = 1

// PuzzleFS holds an image's layer stack, top of stack (most recently
// applied layer) first, and resolves inodes through it. Once returned
// by Open, a *PuzzleFS is read-only and safe for concurrent use.
type PuzzleFS struct {
	img    *image.Image
	layers []*metadata.Blob
}

// Open reads the rootfs manifest named by rootfsHexDigest and opens
// every metadata blob it lists, preserving the manifest's order (base
// layer last).
func Open(img *image.Image, rootfsHexDigest string) (*PuzzleFS, error) {
	rootfs, err := img.OpenRootfsBlob(rootfsHexDigest)
	if err != nil {
		return nil, err
	}

	layers := make([]*metadata.Blob, 0, len(rootfs.Metadatas))
	for _, ref := range rootfs.Metadatas {
		d, err := digest.FromBlobRef(ref)
		if err != nil {
			return nil, fmt.Errorf("rootfs manifest: %w", err)
		}

		blob, err := img.OpenMetadataBlob(d)
		if err != nil {
			return nil, err
		}
		layers = append(layers, blob)
	}

	return &PuzzleFS{img: img, layers: layers}, nil
}

// layerEntry pairs an inode with the layer index that produced it: the
// layer a Dir/Reg inode's mode offset is relative to, which is not
// necessarily layer 0.
type layerEntry struct {
	inode      wireformat.Inode
	layerIndex int
}

// findLayerEntry walks the layer stack top-down, returning the first
// layer that has ino. It does not interpret ModeWht itself, since some
// callers (directory merge) need to see the whiteout rather than treat
// it as absence.
func (p *PuzzleFS) findLayerEntry(ino uint64) (layerEntry, bool, error) {
	for idx, layer := range p.layers {
		rec, ok, err := layer.FindInode(ino)
		if err != nil {
			return layerEntry{}, false, fmt.Errorf("layer %d: %w", idx, err)
		}
		if ok {
			return layerEntry{inode: rec, layerIndex: idx}, true, nil
		}
	}
	return layerEntry{}, false, nil
}

// FindInode resolves ino through the layer stack, top-down, first hit
// wins. A hit whose mode is ModeWht is the deletion marker for ino and
// is surfaced as ErrNotExist, even though a lower layer may still carry
// a live record for the same inode number.
func (p *PuzzleFS) FindInode(ino uint64) (wireformat.Inode, error) {
	entry, ok, err := p.findLayerEntry(ino)
	if err != nil {
		return wireformat.Inode{}, err
	}
	if !ok {
		return wireformat.Inode{}, ErrNotExist
	}
	if entry.inode.Mode.Tag == wireformat.ModeWht {
		return wireformat.Inode{}, ErrNotExist
	}
	return entry.inode, nil
}

// additionalFor returns the InodeAdditional side data for ino, if any.
// ok is false when the inode has no Additional reference at all. The
// Additional BlobRef's offset is only meaningful relative to whichever
// layer produced the winning inode record, so this re-locates that
// layer rather than assuming layer 0.
func (p *PuzzleFS) additionalFor(ino uint64) (wireformat.InodeAdditional, bool, error) {
	entry, ok, err := p.findLayerEntry(ino)
	if err != nil {
		return wireformat.InodeAdditional{}, false, err
	}
	if !ok || entry.inode.Mode.Tag == wireformat.ModeWht || entry.inode.Additional == nil {
		return wireformat.InodeAdditional{}, false, nil
	}

	add, err := p.layers[entry.layerIndex].ReadInodeAdditional(*entry.inode.Additional)
	if err != nil {
		return wireformat.InodeAdditional{}, false, err
	}
	return add, true, nil
}

// dirEntByName orders btree items by entry name so the merge below
// comes back in a stable, sorted order regardless of how many layers
// contributed entries. whiteout marks a reserved-but-not-emitted name:
// it still occupies the slot, blocking inheritance from a lower layer,
// but is dropped from the final listing.
type dirEntByName struct {
	wireformat.DirEnt
	whiteout bool
}

func (a dirEntByName) Less(than btree.Item) bool {
	return string(a.Name) < string(than.(dirEntByName).Name)
}

// ReadDir returns the merged directory listing for the Dir inode ino.
//
// When a layer's DirList has LookBelow set, entries from the same
// inode number in the next lower layer are unioned in by name, with
// the upper layer's entry winning on collision; an entry whose
// resolved inode is ModeWht is excluded from the result (and, since it
// still occupies that name in the upper layer, blocks inheritance of
// a same-named entry from a lower layer). This resolves the layered
// merge as full-union rather than conservative first-hit-only, per
// DESIGN.md.
func (p *PuzzleFS) ReadDir(ino uint64) ([]wireformat.DirEnt, error) {
	tree := btree.New(32)

	startIdx := 0
	for {
		entry, ok, err := p.findLayerEntryFrom(ino, startIdx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if entry.inode.Mode.Tag == wireformat.ModeWht {
			break
		}
		if entry.inode.Mode.Tag != wireformat.ModeDir {
			return nil, fmt.Errorf("%w: inode %d", ErrNotDirectory, ino)
		}

		list, err := p.layers[entry.layerIndex].ReadDirList(entry.inode.Mode.Offset)
		if err != nil {
			return nil, err
		}

		for _, ent := range list.Entries {
			probe := dirEntByName{DirEnt: ent}
			if existing := tree.Get(probe); existing != nil {
				continue // an upper layer already supplied this name
			}

			// A whiteout inode occupies the name so that a same-named
			// lower-layer entry is not inherited, but it does not itself
			// appear in the merged listing.
			child, ok, err := p.findLayerEntryFrom(ent.Ino, startIdx)
			if err != nil {
				return nil, err
			}

			item := dirEntByName{DirEnt: ent, whiteout: ok && child.inode.Mode.Tag == wireformat.ModeWht}
			tree.ReplaceOrInsert(item)
		}

		if !list.LookBelow {
			break
		}
		startIdx = entry.layerIndex + 1
	}

	out := make([]wireformat.DirEnt, 0, tree.Len())
	tree.Ascend(func(item btree.Item) bool {
		d := item.(dirEntByName)
		if !d.whiteout {
			out = append(out, d.DirEnt)
		}
		return true
	})
	return out, nil
}

// findLayerEntryFrom is findLayerEntry restricted to layers at index
// >= from, used to resume a LookBelow walk at the layer below the one
// that produced the current DirList.
func (p *PuzzleFS) findLayerEntryFrom(ino uint64, from int) (layerEntry, bool, error) {
	for idx := from; idx < len(p.layers); idx++ {
		rec, ok, err := p.layers[idx].FindInode(ino)
		if err != nil {
			return layerEntry{}, false, fmt.Errorf("layer %d: %w", idx, err)
		}
		if ok {
			return layerEntry{inode: rec, layerIndex: idx}, true, nil
		}
	}
	return layerEntry{}, false, nil
}
