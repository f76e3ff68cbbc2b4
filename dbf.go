package godbf

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

type DBF interface {
	Reload() error
	NumRecords() uint32
	GetRecord(index uint32, dst any) (Status, error)
	GetRecords(start, end uint32, dst any, workerNums int) error
	Append(src any) error
	Put(index uint32, src any, status Status) error
	SetDeleted(index uint32, deleted bool) error
	Flush() error
	Close() error
}

var _ DBF = (*Table)(nil)

// Table is one open table and its optional memo file. Record count and the
// last update date live in memory until Flush rewrites the header.
type Table struct {
	mu sync.RWMutex
	// ioMu serializes seeks on the table stream, which readers share.
	ioMu    sync.Mutex
	stream  io.ReadWriteSeeker
	closers []io.Closer
	header  *Header
	fields  []FieldDescriptor
	memo    *Memo
	fc      FieldContext
	opts    *options
	log     logrus.FieldLogger
	dirty   bool
	closed  bool
}

// Header returns a copy of the table header.
func (t *Table) Header() Header {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return *t.header
}

// Fields returns a copy of the field descriptors.
func (t *Table) Fields() []FieldDescriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]FieldDescriptor(nil), t.fields...)
}

func (t *Table) NumRecords() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.header.RecordCount
}

// Memo returns the memo file paired with the table, or nil.
func (t *Table) Memo() *Memo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.memo
}

// Reload re-reads the header and field descriptors from the stream. It
// refuses to discard unflushed changes.
func (t *Table) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed.New()
	}
	if t.dirty {
		return ErrDirty.New()
	}
	t.ioMu.Lock()
	h, fields, err := readHeader(t.stream, t.log)
	t.ioMu.Unlock()
	if err != nil {
		return err
	}
	t.header, t.fields = h, fields
	if t.opts.encoding == nil {
		t.fc.Encoding = CodePageEncoding(h.LanguageDriver)
	}
	if t.memo != nil {
		m, err := openMemo(t.memo.stream, t.memo.format, t.log)
		if err != nil {
			return err
		}
		t.memo = m
		t.fc.Memo = m
	}
	t.log.WithField("records", h.RecordCount).Debug("dbf: table reloaded")
	return nil
}

// Flush writes the header, the end of file marker and the memo header if
// anything changed since the last flush.
func (t *Table) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed.New()
	}
	return t.flushLocked()
}

// Close flushes the table and closes the files it opened itself.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	err := t.flushLocked()
	for _, c := range t.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	t.closed = true
	return err
}
