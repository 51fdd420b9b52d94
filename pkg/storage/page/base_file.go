package page

import (
	"fmt"
	"io"
	"os"
	"sync"

	"tupledb/pkg/primitives"
)

// BaseFile provides the random-access disk plumbing shared by database
// files: page-granular reads and writes against a single OS file, and the
// stable table ID derived from the file's absolute path.
type BaseFile struct {
	file   *os.File
	path   primitives.Filepath
	id     primitives.TableID
	mutex  sync.Mutex
	closed bool
}

// NewBaseFile opens (or creates) the backing file at the given path.
func NewBaseFile(path primitives.Filepath) (*BaseFile, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	f, err := os.OpenFile(path.String(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	return &BaseFile{
		file: f,
		path: path,
		id:   path.Hash(),
	}, nil
}

// GetID returns the table ID of this file.
func (bf *BaseFile) GetID() primitives.TableID {
	return bf.id
}

// Filepath returns the path of the backing file.
func (bf *BaseFile) Filepath() primitives.Filepath {
	return bf.path
}

// ReadPageData reads exactly PageSize bytes at the given page number.
// Reading a page past the end of the file is an error.
func (bf *BaseFile) ReadPageData(pageNo primitives.PageNumber) ([]byte, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.closed {
		return nil, fmt.Errorf("file %s is closed", bf.path)
	}
	if pageNo < 0 {
		return nil, fmt.Errorf("invalid page number %d", pageNo)
	}

	data := make([]byte, PageSize)
	offset := int64(pageNo) * int64(PageSize)
	if _, err := bf.file.ReadAt(data, offset); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("page %d does not exist in %s: %w", pageNo, bf.path, err)
		}
		return nil, fmt.Errorf("failed to read page %d from %s: %w", pageNo, bf.path, err)
	}
	return data, nil
}

// WritePageData writes a PageSize-byte image at the given page number,
// extending the file when writing past the current end.
func (bf *BaseFile) WritePageData(pageNo primitives.PageNumber, data []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.closed {
		return fmt.Errorf("file %s is closed", bf.path)
	}
	if len(data) != PageSize {
		return fmt.Errorf("invalid page data size: expected %d, got %d", PageSize, len(data))
	}

	offset := int64(pageNo) * int64(PageSize)
	if _, err := bf.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("failed to write page %d to %s: %w", pageNo, bf.path, err)
	}
	return nil
}

// NumPages returns the number of whole pages currently in the file.
func (bf *BaseFile) NumPages() (int, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.closed {
		return 0, fmt.Errorf("file %s is closed", bf.path)
	}

	info, err := bf.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", bf.path, err)
	}
	return int(info.Size() / int64(PageSize)), nil
}

// Sync flushes the file contents to stable storage.
func (bf *BaseFile) Sync() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.closed {
		return fmt.Errorf("file %s is closed", bf.path)
	}
	return bf.file.Sync()
}

// Close closes the underlying file handle. Further reads and writes fail.
func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.closed {
		return nil
	}
	bf.closed = true
	return bf.file.Close()
}
