package primitives

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Filepath is a type-safe wrapper around file paths used for table and log
// files. Hashing a Filepath yields the stable TableID of the file.
type Filepath string

// Hash generates a TableID from the absolute form of the file path.
// Relative and absolute spellings of the same path map to the same ID.
func (f Filepath) Hash() TableID {
	abs, err := filepath.Abs(string(f))
	if err != nil {
		abs = string(f)
	}
	return TableID(xxhash.Sum64String(abs))
}

// Exists reports whether the file currently exists on disk.
func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

// Join appends path elements to this path and returns a new Filepath.
func (f Filepath) Join(elem ...string) Filepath {
	parts := append([]string{string(f)}, elem...)
	return Filepath(filepath.Join(parts...))
}

func (f Filepath) String() string {
	return string(f)
}
