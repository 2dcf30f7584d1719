package puzzlefs

import (
	"fmt"

	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

// File is a resolved regular-file inode, ready for random-access
// reads. It is returned by PuzzleFS.Open and is safe for concurrent
// use: ReadAt takes no lock and shares no mutable state across calls.
type File struct {
	fs     *PuzzleFS
	inode  wireformat.Inode
	chunks []wireformat.FileChunk
}

// Open resolves ino and, if it names a regular file, returns a File
// ready for ReadAt. Any other inode kind fails with ErrNotRegularFile.
func (p *PuzzleFS) Open(ino uint64) (*File, error) {
	entry, ok, err := p.findLayerEntry(ino)
	if err != nil {
		return nil, err
	}
	if !ok || entry.inode.Mode.Tag == wireformat.ModeWht {
		return nil, ErrNotExist
	}
	if entry.inode.Mode.Tag != wireformat.ModeReg {
		return nil, fmt.Errorf("%w: inode %d", ErrNotRegularFile, ino)
	}

	chunks, err := p.layers[entry.layerIndex].ReadFileChunks(entry.inode.Mode.Offset)
	if err != nil {
		return nil, err
	}

	return &File{fs: p, inode: entry.inode, chunks: chunks}, nil
}

// Size returns the file's total content length, the sum of its
// chunks' lengths.
func (f *File) Size() int64 {
	var total uint64
	for _, c := range f.chunks {
		total += c.Len
	}
	return int64(total)
}

// ReadAt fills buf with the file's content starting at offset,
// reassembling it from the chunk list by walking chunks in order,
// skipping any entirely before offset and stopping once a chunk
// starts at or past the end of the requested range. A short read from
// one chunk does not stop the walk: later chunks may still supply the
// remaining requested bytes, so ReadAt keeps advancing buf/file offsets
// by however much the chunk actually returned and continues.
func (f *File) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("puzzlefs: negative offset %d", offset)
	}

	fileOffset := uint64(offset)
	bufOffset := 0
	want := len(buf)

	var cursor uint64
	for _, chunk := range f.chunks {
		chunkStart := cursor
		chunkEnd := cursor + chunk.Len
		cursor = chunkEnd

		if bufOffset >= want {
			break
		}
		if chunkEnd <= fileOffset {
			continue // entirely before the requested range
		}
		if chunkStart >= fileOffset+uint64(want) {
			break // entirely past the requested range
		}

		var addl uint64
		if fileOffset > chunkStart {
			addl = fileOffset - chunkStart
		}

		toRead := chunk.Len - addl
		if remaining := uint64(want - bufOffset); toRead > remaining {
			toRead = remaining
		}

		n, err := f.fs.img.FillFromChunk(chunk.Blob, addl, buf[bufOffset:bufOffset+int(toRead)])
		bufOffset += n
		if err != nil {
			return bufOffset, err
		}
		// A short read here (n < toRead) is not an error: it is
		// tolerated, not propagated, by image.Image.FillFromChunk, and
		// later chunks may still supply the remaining requested bytes,
		// so the walk continues rather than stopping.
	}

	return bufOffset, nil
}
