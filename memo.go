package godbf

import (
	"io"
	"iter"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoFormat is the on-disk encoding of a memo file.
type MemoFormat int

const (
	MemoNone MemoFormat = iota
	// MemoDBT3 is the dBASE III layout: blocks terminated by 0x1A 0x1A.
	MemoDBT3
	// MemoDBT4 is the dBASE IV layout: FF FF 08 00 followed by the frame length.
	MemoDBT4
	// MemoFPT is the FoxPro layout: big endian type and length prefix.
	MemoFPT
)

func (f MemoFormat) String() string {
	switch f {
	case MemoDBT3:
		return "dbt3"
	case MemoDBT4:
		return "dbt4"
	case MemoFPT:
		return "fpt"
	}
	return "none"
}

// Extension is the conventional file extension of the format.
func (f MemoFormat) Extension() string {
	if f == MemoFPT {
		return ".fpt"
	}
	return ".dbt"
}

// MemoType tags FoxPro memo records.
type MemoType uint32

const (
	MemoPicture MemoType = 0
	MemoText    MemoType = 1
	MemoObject  MemoType = 2
)

// MemoRecord is one value stored in a memo file.
type MemoRecord struct {
	Type MemoType
	Data []byte
}

const (
	memoHeaderSize = 512
	maxMemoLength  = 1 << 28
)

type memoCodecFormat interface {
	defaultBlockLength() uint32
	readHeader(buf []byte) (next, blockLength uint32)
	writeHeader(buf []byte, next, blockLength uint32)
	// frame returns the complete on-disk representation of rec.
	frame(rec MemoRecord) []byte
	// readFrame reads the record starting at off and returns it with its
	// frame length in bytes.
	readFrame(r io.ReadSeeker, off int64, blockLength uint32) (MemoRecord, int, error)
}

func memoCodecFor(f MemoFormat) (memoCodecFormat, error) {
	switch f {
	case MemoDBT3:
		return dbt3Format{}, nil
	case MemoDBT4:
		return dbt4Format{}, nil
	case MemoFPT:
		return fptFormat{}, nil
	}
	return nil, ErrInvalidMemoHeader.New("no memo format " + f.String())
}

// Memo is an append-only, block addressed memo file.
type Memo struct {
	mu          sync.Mutex
	stream      io.ReadWriteSeeker
	format      MemoFormat
	codec       memoCodecFormat
	header      []byte
	blockLength uint32
	nextIndex   uint32
	dirty       bool
	log         logrus.FieldLogger
}

// OpenMemo reads the header of an existing memo file.
func OpenMemo(stream io.ReadWriteSeeker, format MemoFormat) (*Memo, error) {
	return openMemo(stream, format, defaultLogger())
}

func openMemo(stream io.ReadWriteSeeker, format MemoFormat, log logrus.FieldLogger) (*Memo, error) {
	codec, err := memoCodecFor(format)
	if err != nil {
		return nil, err
	}
	header := make([]byte, memoHeaderSize)
	if _, err := readAt(stream, 0, header); err != nil {
		return nil, err
	}
	next, blockLength := codec.readHeader(header)
	if blockLength == 0 {
		blockLength = codec.defaultBlockLength()
	}
	m := &Memo{
		stream:      stream,
		format:      format,
		codec:       codec,
		header:      header,
		blockLength: blockLength,
		nextIndex:   next,
		log:         log.WithField("memo", format.String()),
	}
	if next < m.firstIndex() {
		return nil, ErrInvalidMemoHeader.New("next block points into the header")
	}
	return m, nil
}

// CreateMemo writes an empty memo file. A zero blockLength selects the
// format default; dBASE III files always use 512 byte blocks.
func CreateMemo(stream io.ReadWriteSeeker, format MemoFormat, blockLength uint16) (*Memo, error) {
	return createMemo(stream, format, blockLength, defaultLogger())
}

func createMemo(stream io.ReadWriteSeeker, format MemoFormat, blockLength uint16, log logrus.FieldLogger) (*Memo, error) {
	codec, err := memoCodecFor(format)
	if err != nil {
		return nil, err
	}
	bl := uint32(blockLength)
	if bl == 0 || format == MemoDBT3 {
		bl = codec.defaultBlockLength()
	}
	m := &Memo{
		stream:      stream,
		format:      format,
		codec:       codec,
		header:      make([]byte, memoHeaderSize),
		blockLength: bl,
		log:         log.WithField("memo", format.String()),
	}
	m.nextIndex = m.firstIndex()
	m.dirty = true
	if err := m.writeHeader(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memo) Format() MemoFormat { return m.format }
func (m *Memo) BlockLength() uint32 { return m.blockLength }

// NextIndex is the block the next Add will write.
func (m *Memo) NextIndex() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextIndex
}

// firstIndex is the first block after the header region.
func (m *Memo) firstIndex() uint32 {
	return blocksFor(memoHeaderSize, m.blockLength)
}

func blocksFor(n int, blockLength uint32) uint32 {
	return (uint32(n) + blockLength - 1) / blockLength
}

// Get reads the record stored at block index.
func (m *Memo) Get(index uint32) (MemoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < m.firstIndex() || index >= m.nextIndex {
		return MemoRecord{}, ErrMemoOutOfRange.New(index, m.firstIndex(), m.nextIndex)
	}
	rec, _, err := m.codec.readFrame(m.stream, int64(index)*int64(m.blockLength), m.blockLength)
	return rec, err
}

// Add appends rec at NextIndex and returns its block index.
func (m *Memo) Add(rec MemoRecord) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(rec)
}

// Put writes rec at index, which must equal NextIndex. Memo files are
// append-only.
func (m *Memo) Put(index uint32, rec MemoRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index != m.nextIndex {
		return ErrMemoOverwrite.New(index, m.nextIndex)
	}
	_, err := m.appendLocked(rec)
	return err
}

func (m *Memo) appendLocked(rec MemoRecord) (uint32, error) {
	frame := m.codec.frame(rec)
	blocks := blocksFor(len(frame), m.blockLength)
	buf := make([]byte, int(blocks*m.blockLength))
	copy(buf, frame)
	index := m.nextIndex
	if err := writeAt(m.stream, int64(index)*int64(m.blockLength), buf); err != nil {
		return 0, err
	}
	m.nextIndex += blocks
	m.dirty = true
	return index, nil
}

// Records enumerates the stored records in block order. Enumeration stops
// quietly at the first frame that cannot be read.
func (m *Memo) Records() iter.Seq2[uint32, MemoRecord] {
	return func(yield func(uint32, MemoRecord) bool) {
		index := m.firstIndex()
		for {
			m.mu.Lock()
			next := m.nextIndex
			if index >= next {
				m.mu.Unlock()
				return
			}
			rec, n, err := m.codec.readFrame(m.stream, int64(index)*int64(m.blockLength), m.blockLength)
			m.mu.Unlock()
			if err != nil {
				m.log.WithError(err).WithField("block", index).Warn("dbf: memo enumeration stopped at unreadable record")
				return
			}
			if !yield(index, rec) {
				return
			}
			blocks := blocksFor(n, m.blockLength)
			if blocks == 0 {
				blocks = 1
			}
			index += blocks
		}
	}
}

// Flush writes NextIndex back to the header.
func (m *Memo) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty {
		return nil
	}
	if err := m.writeHeader(); err != nil {
		return err
	}
	m.log.WithField("next", m.nextIndex).Debug("dbf: memo header written")
	return syncStream(m.stream)
}

func (m *Memo) writeHeader() error {
	m.codec.writeHeader(m.header, m.nextIndex, m.blockLength)
	if err := writeAt(m.stream, 0, m.header); err != nil {
		return err
	}
	m.dirty = false
	return nil
}
