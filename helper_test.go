package godbf

import (
	"errors"
	"io"
	"time"
)

// memFile is a seekable in-memory file that grows on writes past its end.
type memFile struct {
	data []byte
	pos  int64
}

func newMemFile(data []byte) *memFile {
	return &memFile{data: append([]byte(nil), data...)}
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	if end := f.pos + int64(len(p)); end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}
	n := copy(f.data[f.pos:], p)
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = int64(len(f.data)) + offset
	}
	if pos < 0 {
		return 0, errors.New("memFile: negative position")
	}
	f.pos = pos
	return pos, nil
}

func (f *memFile) Bytes() []byte {
	return append([]byte(nil), f.data...)
}

var testDay = time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC)

func testClock() time.Time { return testDay }
