// Command puzzlefs-ls is a sample, read-only lister over a PuzzleFS
// image. It is not a mount tool: there is no kernel or FUSE glue here,
// only the Open/FS/ReadDir/ReadLink surface the library exposes.
package main

import (
	"fmt"
	"io/fs"
	"os"

	puzzlefs "github.com/puzzlefs/go-puzzlefs"
	"github.com/puzzlefs/go-puzzlefs/image"
)

const usage = `puzzlefs-ls - list the contents of a PuzzleFS image

Usage:
  puzzlefs-ls <image-root> <rootfs-hex-digest> [path]

Examples:
  puzzlefs-ls ./oci-layout-dir 3b8f...e91a
  puzzlefs-ls ./oci-layout-dir 3b8f...e91a usr/bin
`

func main() {
	if len(os.Args) < 3 {
		fmt.Print(usage)
		os.Exit(1)
	}

	imageRoot := os.Args[1]
	rootfsHexDigest := os.Args[2]

	path := "."
	if len(os.Args) > 3 {
		path = os.Args[3]
	}

	if err := list(imageRoot, rootfsHexDigest, path); err != nil {
		fmt.Fprintf(os.Stderr, "puzzlefs-ls: %s\n", err)
		os.Exit(1)
	}
}

func list(imageRoot, rootfsHexDigest, path string) error {
	img, err := image.Open(os.DirFS(imageRoot))
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}

	pfs, err := puzzlefs.Open(img, rootfsHexDigest)
	if err != nil {
		return fmt.Errorf("opening rootfs manifest: %w", err)
	}

	fsys := puzzlefs.NewFS(pfs)

	info, err := fsys.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}

	if !info.IsDir() {
		printEntry(path, info)
		return nil
	}

	entries, err := fsys.ReadDir(path)
	if err != nil {
		return fmt.Errorf("readdir %q: %w", path, err)
	}

	for _, entry := range entries {
		entryInfo, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", entry.Name(), err)
			continue
		}
		printEntry(entry.Name(), entryInfo)
	}

	return nil
}

func printEntry(name string, info fs.FileInfo) {
	typeChar := "-"
	switch {
	case info.IsDir():
		typeChar = "d"
	case info.Mode()&fs.ModeSymlink != 0:
		typeChar = "l"
	case info.Mode()&fs.ModeCharDevice != 0:
		typeChar = "c"
	case info.Mode()&fs.ModeDevice != 0:
		typeChar = "b"
	case info.Mode()&fs.ModeNamedPipe != 0:
		typeChar = "p"
	case info.Mode()&fs.ModeSocket != 0:
		typeChar = "s"
	}

	size := fmt.Sprintf("%8d", info.Size())
	if info.IsDir() {
		size = "       -"
	}

	fmt.Printf("%s%s %s %s\n", typeChar, info.Mode().Perm(), size, name)
}
