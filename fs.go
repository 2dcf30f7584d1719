package puzzlefs

import (
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

var (
	_ fs.FS        = (*FS)(nil)
	_ fs.ReadDirFS = (*FS)(nil)
	_ fs.StatFS    = (*FS)(nil)
	_ ReadLinkFS   = (*FS)(nil)
	_ XattrFS      = (*FS)(nil)
)

// FS is a reference io/fs.FS adapter over a PuzzleFS resolver. It is
// not the kernel or FUSE glue a real mount would use; it exists so the
// operations a host adapter needs (open, stat, readdir, readlink,
// xattrs) have a concrete, testable implementation in this module.
type FS struct {
	pfs *PuzzleFS
}

// NewFS returns an FS rooted at pfs's RootIno.
func NewFS(pfs *PuzzleFS) *FS {
	return &FS{pfs: pfs}
}

func (fsys *FS) Open(name string) (fs.File, error) {
	ino, inode, err := fsys.resolve(name, false)
	if err != nil {
		return nil, pathErr("open", name, err)
	}

	if inode.Mode.Tag == wireformat.ModeDir {
		entries, err := fsys.pfs.ReadDir(ino)
		if err != nil {
			return nil, pathErr("open", name, err)
		}
		return &dirHandle{fsys: fsys, name: path.Base(name), ino: ino, inode: inode, entries: entries}, nil
	}

	if inode.Mode.Tag != wireformat.ModeReg {
		return &fileHandle{fsys: fsys, name: path.Base(name), ino: ino, inode: inode}, nil
	}

	f, err := fsys.pfs.Open(ino)
	if err != nil {
		return nil, pathErr("open", name, err)
	}
	return &fileHandle{fsys: fsys, name: path.Base(name), ino: ino, inode: inode, file: f}, nil
}

func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	ino, inode, err := fsys.resolve(name, false)
	if err != nil {
		return nil, pathErr("readdir", name, err)
	}
	if inode.Mode.Tag != wireformat.ModeDir {
		return nil, pathErr("readdir", name, ErrNotDirectory)
	}

	entries, err := fsys.pfs.ReadDir(ino)
	if err != nil {
		return nil, pathErr("readdir", name, err)
	}

	out := make([]fs.DirEntry, 0, len(entries))
	for _, ent := range entries {
		childInode, err := fsys.pfs.FindInode(ent.Ino)
		if err != nil {
			return nil, pathErr("readdir", name, err)
		}
		out = append(out, &dirEntryInfo{name: string(ent.Name), inode: childInode})
	}
	return out, nil
}

func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	_, inode, err := fsys.resolve(name, false)
	if err != nil {
		return nil, pathErr("stat", name, err)
	}
	return &dirEntryInfo{name: path.Base(name), inode: inode}, nil
}

// ReadLink returns the destination of the named symbolic link.
func (fsys *FS) ReadLink(name string) (string, error) {
	ino, inode, err := fsys.resolve(name, true)
	if err != nil {
		return "", pathErr("readlink", name, err)
	}
	if inode.Mode.Tag != wireformat.ModeLnk {
		return "", pathErr("readlink", name, fs.ErrInvalid)
	}

	add, ok, err := fsys.pfs.additionalFor(ino)
	if err != nil {
		return "", pathErr("readlink", name, err)
	}
	if !ok {
		return "", pathErr("readlink", name, fs.ErrInvalid)
	}
	return string(add.SymlinkTarget), nil
}

// StatLink returns a FileInfo describing name without following a
// trailing symbolic link.
func (fsys *FS) StatLink(name string) (fs.FileInfo, error) {
	_, inode, err := fsys.resolve(name, true)
	if err != nil {
		return nil, pathErr("statlink", name, err)
	}
	return &dirEntryInfo{name: path.Base(name), inode: inode}, nil
}

// ListXattrs returns the extended attribute keys set on name.
func (fsys *FS) ListXattrs(name string) ([]string, error) {
	ino, _, err := fsys.resolve(name, false)
	if err != nil {
		return nil, pathErr("listxattr", name, err)
	}

	add, ok, err := fsys.pfs.additionalFor(ino)
	if err != nil {
		return nil, pathErr("listxattr", name, err)
	}
	if !ok {
		return nil, nil
	}

	keys := make([]string, len(add.Xattrs))
	for i, x := range add.Xattrs {
		keys[i] = string(x.Key)
	}
	return keys, nil
}

// GetXattr returns the value of the named extended attribute on name.
func (fsys *FS) GetXattr(name, key string) ([]byte, error) {
	ino, _, err := fsys.resolve(name, false)
	if err != nil {
		return nil, pathErr("getxattr", name, err)
	}

	add, ok, err := fsys.pfs.additionalFor(ino)
	if err != nil {
		return nil, pathErr("getxattr", name, err)
	}
	if !ok {
		return nil, pathErr("getxattr", name, fs.ErrNotExist)
	}

	for _, x := range add.Xattrs {
		if string(x.Key) == key {
			return x.Val, nil
		}
	}
	return nil, pathErr("getxattr", name, fs.ErrNotExist)
}

// resolve walks name component by component from the root inode,
// following symlinks at every component except optionally the last.
func (fsys *FS) resolve(name string, noResolveLastSymlink bool) (uint64, wireformat.Inode, error) {
	ino := RootIno
	inode, err := fsys.pfs.FindInode(ino)
	if err != nil {
		return 0, wireformat.Inode{}, err
	}

	components := splitPath(name)
	for i, comp := range components {
		if inode.Mode.Tag != wireformat.ModeDir {
			return 0, wireformat.Inode{}, ErrNotDirectory
		}

		childIno, childInode, err := fsys.lookupChild(ino, comp)
		if err != nil {
			return 0, wireformat.Inode{}, err
		}

		if childInode.Mode.Tag == wireformat.ModeLnk && !(noResolveLastSymlink && i == len(components)-1) {
			add, ok, err := fsys.pfs.additionalFor(childIno)
			if err != nil {
				return 0, wireformat.Inode{}, err
			}
			if !ok {
				return 0, wireformat.Inode{}, fs.ErrInvalid
			}

			target := path.Clean(string(add.SymlinkTarget))
			if !strings.HasPrefix(target, "/") {
				target = path.Join(strings.Join(components[:i], "/"), target)
			}
			target = strings.TrimPrefix(target, "/")

			childIno, childInode, err = fsys.resolve(target, noResolveLastSymlink)
			if err != nil {
				return 0, wireformat.Inode{}, err
			}
		}

		ino, inode = childIno, childInode
	}

	return ino, inode, nil
}

// lookupChild finds the directory entry named name within dirIno and
// resolves its inode.
func (fsys *FS) lookupChild(dirIno uint64, name string) (uint64, wireformat.Inode, error) {
	entries, err := fsys.pfs.ReadDir(dirIno)
	if err != nil {
		return 0, wireformat.Inode{}, err
	}

	for _, ent := range entries {
		if string(ent.Name) == name {
			inode, err := fsys.pfs.FindInode(ent.Ino)
			if err != nil {
				return 0, wireformat.Inode{}, err
			}
			return ent.Ino, inode, nil
		}
	}
	return 0, wireformat.Inode{}, ErrNotExist
}

func splitPath(name string) []string {
	var components []string
	for _, part := range strings.Split(path.Clean(name), "/") {
		if part != "" && part != "." {
			components = append(components, part)
		}
	}
	return components
}

func pathErr(op, name string, err error) error {
	if err == ErrNotExist {
		err = fs.ErrNotExist
	}
	return &fs.PathError{Op: op, Path: name, Err: err}
}

// dirEntryInfo implements both fs.DirEntry and fs.FileInfo over a
// resolved inode, the way the teacher's fileInfo/dirEntry types do.
type dirEntryInfo struct {
	name  string
	inode wireformat.Inode
}

func (d *dirEntryInfo) Name() string { return d.name }
func (d *dirEntryInfo) IsDir() bool  { return d.inode.Mode.Tag == wireformat.ModeDir }
func (d *dirEntryInfo) Type() fs.FileMode {
	return statFileMode(d.inode) & fs.ModeType
}
func (d *dirEntryInfo) Info() (fs.FileInfo, error) { return d, nil }
func (d *dirEntryInfo) Size() int64                { return 0 }
func (d *dirEntryInfo) Mode() fs.FileMode          { return statFileMode(d.inode) }
func (d *dirEntryInfo) ModTime() time.Time         { return time.Time{} }
func (d *dirEntryInfo) Sys() any                   { return &d.inode }

func statFileMode(inode wireformat.Inode) fs.FileMode {
	mode := fs.FileMode(inode.Permissions)
	switch inode.Mode.Tag {
	case wireformat.ModeDir:
		mode |= fs.ModeDir
	case wireformat.ModeLnk:
		mode |= fs.ModeSymlink
	case wireformat.ModeChr:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case wireformat.ModeBlk:
		mode |= fs.ModeDevice
	case wireformat.ModeFifo:
		mode |= fs.ModeNamedPipe
	case wireformat.ModeSock:
		mode |= fs.ModeSocket
	}
	return mode
}

// fileHandle is an open fs.File backed either by a regular File
// (sequential Read via ReadAt) or, for non-regular, non-directory
// inodes (devices, fifos, sockets), a handle that reports Stat only.
type fileHandle struct {
	fsys   *FS
	name   string
	ino    uint64
	inode  wireformat.Inode
	file   *File
	offset int64
}

func (h *fileHandle) Stat() (fs.FileInfo, error) {
	return &dirEntryInfo{name: h.name, inode: h.inode}, nil
}

func (h *fileHandle) Read(buf []byte) (int, error) {
	if h.file == nil {
		return 0, ErrNotRegularFile
	}
	n, err := h.file.ReadAt(buf, h.offset)
	h.offset += int64(n)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (h *fileHandle) Close() error { return nil }

// dirHandle is an open fs.ReadDirFile.
type dirHandle struct {
	fsys    *FS
	name    string
	ino     uint64
	inode   wireformat.Inode
	entries []wireformat.DirEnt
	offset  int
}

func (h *dirHandle) Stat() (fs.FileInfo, error) {
	return &dirEntryInfo{name: h.name, inode: h.inode}, nil
}

func (h *dirHandle) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: h.name, Err: fs.ErrInvalid}
}

func (h *dirHandle) Close() error { return nil }

func (h *dirHandle) ReadDir(n int) ([]fs.DirEntry, error) {
	remaining := h.entries[h.offset:]

	want := n
	count := len(remaining)
	if want > 0 && want < count {
		count = want
	}

	out := make([]fs.DirEntry, 0, count)
	for _, ent := range remaining[:count] {
		inode, err := h.fsys.pfs.FindInode(ent.Ino)
		if err != nil {
			return out, err
		}
		out = append(out, &dirEntryInfo{name: string(ent.Name), inode: inode})
	}
	h.offset += count

	if want > 0 && count == 0 {
		return out, io.EOF
	}
	return out, nil
}
