package godbf

import (
	"encoding/binary"
	"io"
)

// FoxPro memo files are big endian, unlike every other structure here.
var be = binary.BigEndian

var (
	fptHeaderLayout = byteLayout{
		"next":        {0, 4, be},
		"blockLength": {6, 2, be},
	}
	fptFrameLayout = byteLayout{
		"type":   {0, 4, be},
		"length": {4, 4, be},
	}
)

const fptFrameHeader = 8

type fptFormat struct{}

func (fptFormat) defaultBlockLength() uint32 { return 64 }

func (fptFormat) readHeader(buf []byte) (uint32, uint32) {
	return fptHeaderLayout.get(buf, "next"), fptHeaderLayout.get(buf, "blockLength")
}

func (fptFormat) writeHeader(buf []byte, next, blockLength uint32) {
	fptHeaderLayout.put(buf, "next", next)
	fptHeaderLayout.put(buf, "blockLength", blockLength)
}

func (fptFormat) frame(rec MemoRecord) []byte {
	out := make([]byte, fptFrameHeader+len(rec.Data))
	fptFrameLayout.put(out, "type", uint32(rec.Type))
	fptFrameLayout.put(out, "length", uint32(len(rec.Data)))
	copy(out[fptFrameHeader:], rec.Data)
	return out
}

func (fptFormat) readFrame(r io.ReadSeeker, off int64, _ uint32) (MemoRecord, int, error) {
	head := make([]byte, fptFrameHeader)
	if _, err := readAt(r, off, head); err != nil {
		return MemoRecord{}, 0, err
	}
	rec := MemoRecord{Type: MemoType(fptFrameLayout.get(head, "type"))}
	length := fptFrameLayout.get(head, "length")
	if length > maxMemoLength {
		return MemoRecord{}, 0, ErrInvalidMemoHeader.New("record length exceeds the memo limit")
	}
	rec.Data = make([]byte, length)
	if _, err := readAt(r, off+fptFrameHeader, rec.Data); err != nil {
		return MemoRecord{}, 0, err
	}
	return rec, fptFrameHeader + len(rec.Data), nil
}
