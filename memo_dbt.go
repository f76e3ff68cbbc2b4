package godbf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

var (
	dbt3HeaderLayout = byteLayout{
		"next":    {0, 4, le},
		"version": {16, 1, nil},
	}
	dbt4HeaderLayout = byteLayout{
		"next":        {0, 4, le},
		"blockLength": {20, 2, le},
	}
	dbt4FrameLayout = byteLayout{
		"length": {4, 4, le},
	}
)

var (
	dbt3Terminator = []byte{EOF, EOF}
	dbt4Magic      = []byte{0xFF, 0xFF, 0x08, 0x00}
)

const dbt4FrameHeader = 8

type dbt3Format struct{}

func (dbt3Format) defaultBlockLength() uint32 { return 512 }

func (dbt3Format) readHeader(buf []byte) (uint32, uint32) {
	return dbt3HeaderLayout.get(buf, "next"), 512
}

func (dbt3Format) writeHeader(buf []byte, next, _ uint32) {
	dbt3HeaderLayout.put(buf, "next", next)
	dbt3HeaderLayout.put(buf, "version", 0x03)
}

func (dbt3Format) frame(rec MemoRecord) []byte {
	out := make([]byte, 0, len(rec.Data)+len(dbt3Terminator))
	out = append(out, rec.Data...)
	return append(out, dbt3Terminator...)
}

// readFrame concatenates blocks until the terminator. A short final block
// ends the record without one.
func (dbt3Format) readFrame(r io.ReadSeeker, off int64, blockLength uint32) (MemoRecord, int, error) {
	var data []byte
	block := make([]byte, blockLength)
	for {
		n, err := readAt(r, off+int64(len(data)), block)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return MemoRecord{}, 0, err
		}
		// The terminator may straddle two blocks.
		from := len(data) - 1
		if from < 0 {
			from = 0
		}
		data = append(data, block[:n]...)
		if i := bytes.Index(data[from:], dbt3Terminator); i >= 0 {
			end := from + i
			return MemoRecord{Type: MemoText, Data: data[:end]}, end + len(dbt3Terminator), nil
		}
		if n < len(block) {
			if len(data) == 0 {
				return MemoRecord{}, 0, io.ErrUnexpectedEOF
			}
			return MemoRecord{Type: MemoText, Data: data}, len(data), nil
		}
	}
}

type dbt4Format struct{}

func (dbt4Format) defaultBlockLength() uint32 { return 512 }

func (dbt4Format) readHeader(buf []byte) (uint32, uint32) {
	return dbt4HeaderLayout.get(buf, "next"), dbt4HeaderLayout.get(buf, "blockLength")
}

func (dbt4Format) writeHeader(buf []byte, next, blockLength uint32) {
	dbt4HeaderLayout.put(buf, "next", next)
	dbt4HeaderLayout.put(buf, "blockLength", blockLength)
}

func (dbt4Format) frame(rec MemoRecord) []byte {
	out := make([]byte, dbt4FrameHeader+len(rec.Data))
	copy(out, dbt4Magic)
	dbt4FrameLayout.put(out, "length", uint32(len(out)))
	copy(out[dbt4FrameHeader:], rec.Data)
	return out
}

func (dbt4Format) readFrame(r io.ReadSeeker, off int64, _ uint32) (MemoRecord, int, error) {
	head := make([]byte, dbt4FrameHeader)
	if _, err := readAt(r, off, head); err != nil {
		return MemoRecord{}, 0, err
	}
	if !bytes.Equal(head[:4], dbt4Magic) {
		return MemoRecord{}, 0, ErrInvalidMemoHeader.New("missing FF FF 08 00 record marker")
	}
	length := dbt4FrameLayout.get(head, "length")
	if length < dbt4FrameHeader || length > maxMemoLength {
		return MemoRecord{}, 0, ErrInvalidMemoHeader.New(fmt.Sprintf("invalid record length %d", length))
	}
	data := make([]byte, length-dbt4FrameHeader)
	if _, err := readAt(r, off+dbt4FrameHeader, data); err != nil {
		return MemoRecord{}, 0, err
	}
	return MemoRecord{Type: MemoText, Data: data}, int(length), nil
}
