// Package log implements the write-ahead log service used by the buffer
// pool. Before a dirty page is written to disk, an update record holding
// the page's before- and after-image is appended and the log is forced,
// so committed changes can always be redone and uncommitted ones undone.
package log

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"tupledb/pkg/concurrency/transaction"
	"tupledb/pkg/storage/page"
)

// RecordType identifies the kind of a log record.
type RecordType uint8

const (
	BeginRecord RecordType = iota
	CommitRecord
	AbortRecord
	UpdateRecord
)

// LogFile is an append-only log of transaction boundaries and page updates.
type LogFile struct {
	mutex sync.Mutex
	file  *os.File
	path  string
}

// NewLogFile opens (or creates) the log at the given path, positioned for
// appending.
func NewLogFile(path string) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &LogFile{file: f, path: path}, nil
}

// LogBegin appends a BEGIN record for the transaction.
func (lf *LogFile) LogBegin(tid *transaction.TransactionID) error {
	return lf.appendBoundary(BeginRecord, tid)
}

// LogCommit appends a COMMIT record for the transaction.
func (lf *LogFile) LogCommit(tid *transaction.TransactionID) error {
	return lf.appendBoundary(CommitRecord, tid)
}

// LogAbort appends an ABORT record for the transaction.
func (lf *LogFile) LogAbort(tid *transaction.TransactionID) error {
	return lf.appendBoundary(AbortRecord, tid)
}

// LogWrite appends an update record carrying the before- and after-image of
// a page modified by tid. Must be called (followed by Force) before the
// page itself is written to disk.
func (lf *LogFile) LogWrite(tid *transaction.TransactionID, before, after page.Page) error {
	if before == nil || after == nil {
		return fmt.Errorf("update record requires both page images")
	}

	pid := after.GetID()
	beforeData := before.GetPageData()
	afterData := after.GetPageData()

	buf := make([]byte, 0, 1+8+16+8+len(beforeData)+len(afterData))
	buf = append(buf, byte(UpdateRecord))
	buf = binary.BigEndian.AppendUint64(buf, uint64(tid.ID())) // #nosec G115
	buf = append(buf, pid.Serialize()...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(beforeData))) // #nosec G115
	buf = append(buf, beforeData...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(afterData))) // #nosec G115
	buf = append(buf, afterData...)

	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	if lf.file == nil {
		return fmt.Errorf("log file %s is closed", lf.path)
	}
	if _, err := lf.file.Write(buf); err != nil {
		return fmt.Errorf("failed to append update record: %w", err)
	}
	return nil
}

// Force flushes all appended records to stable storage.
func (lf *LogFile) Force() error {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	if lf.file == nil {
		return fmt.Errorf("log file %s is closed", lf.path)
	}
	if err := lf.file.Sync(); err != nil {
		return fmt.Errorf("failed to force log: %w", err)
	}
	return nil
}

// Close forces and closes the log.
func (lf *LogFile) Close() error {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	if lf.file == nil {
		return nil
	}
	if err := lf.file.Sync(); err != nil {
		return err
	}
	err := lf.file.Close()
	lf.file = nil
	return err
}

func (lf *LogFile) appendBoundary(rt RecordType, tid *transaction.TransactionID) error {
	buf := make([]byte, 0, 9)
	buf = append(buf, byte(rt))
	buf = binary.BigEndian.AppendUint64(buf, uint64(tid.ID())) // #nosec G115

	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	if lf.file == nil {
		return fmt.Errorf("log file %s is closed", lf.path)
	}
	if _, err := lf.file.Write(buf); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}
