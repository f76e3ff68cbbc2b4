package godbf

import (
	"io"
)

// readAt positions r at off and fills p. A short read at the end of the
// stream returns the byte count with io.ErrUnexpectedEOF or io.EOF.
func readAt(r io.ReadSeeker, off int64, p []byte) (int, error) {
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(r, p)
}

func writeAt(w io.WriteSeeker, off int64, p []byte) error {
	if _, err := w.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := w.Write(p)
	return err
}

// syncStream flushes streams that support it, such as *os.File.
func syncStream(s any) error {
	if f, ok := s.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}
