package godbf

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFPTMemo(t *testing.T) {
	f := newMemFile(nil)
	m, err := CreateMemo(f, MemoFPT, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), m.BlockLength())
	assert.Equal(t, uint32(8), m.NextIndex())

	index, err := m.Add(MemoRecord{Type: MemoText, Data: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, uint32(8), index)
	assert.Equal(t, uint32(9), m.NextIndex())

	rec, err := m.Get(8)
	require.NoError(t, err)
	assert.Equal(t, MemoText, rec.Type)
	assert.Equal(t, []byte("hello"), rec.Data)

	require.NoError(t, m.Flush())
	assert.Equal(t, []byte{0, 0, 0, 9}, f.data[0:4])
	assert.Equal(t, []byte{0, 64}, f.data[6:8])
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 5}, f.data[512:520])

	reopened, err := OpenMemo(f, MemoFPT)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), reopened.NextIndex())
	assert.Equal(t, uint32(64), reopened.BlockLength())
	rec, err = reopened.Get(8)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), rec.Data)
}

func TestMemoIsAppendOnly(t *testing.T) {
	m, err := CreateMemo(newMemFile(nil), MemoFPT, 32)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), m.NextIndex())

	err = m.Put(3, MemoRecord{Type: MemoText, Data: []byte("x")})
	assert.True(t, ErrMemoOverwrite.Is(err))
	assert.True(t, IsUnsupported(err))

	require.NoError(t, m.Put(16, MemoRecord{Type: MemoText, Data: []byte("x")}))
	assert.Equal(t, uint32(17), m.NextIndex())

	for _, index := range []uint32{3, 17, 100} {
		_, err := m.Get(index)
		assert.True(t, ErrMemoOutOfRange.Is(err), "block %d", index)
		assert.True(t, IsRangeError(err))
	}
}

func TestDBT3Memo(t *testing.T) {
	f := newMemFile(nil)
	m, err := CreateMemo(f, MemoDBT3, 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), m.BlockLength())
	assert.Equal(t, uint32(1), m.NextIndex())

	long := bytes.Repeat([]byte("x"), 600)
	index, err := m.Add(MemoRecord{Type: MemoText, Data: long})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)
	assert.Equal(t, uint32(3), m.NextIndex())
	assert.Equal(t, []byte{EOF, EOF}, f.data[512+600:512+602])

	index, err = m.Add(MemoRecord{Type: MemoText, Data: []byte("short")})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), index)

	rec, err := m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, long, rec.Data)
	rec, err = m.Get(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("short"), rec.Data)

	require.NoError(t, m.Flush())
	assert.Equal(t, uint32(4), le.Uint32(f.data[0:4]))
	assert.Equal(t, byte(0x03), f.data[16])
}

func TestDBT3MemoShortFinalBlock(t *testing.T) {
	buf := make([]byte, 512, 515)
	le.PutUint32(buf, 2)
	buf = append(buf, "abc"...)

	m, err := OpenMemo(newMemFile(buf), MemoDBT3)
	require.NoError(t, err)
	rec, err := m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), rec.Data)
}

func TestDBT4Memo(t *testing.T) {
	f := newMemFile(nil)
	m, err := CreateMemo(f, MemoDBT4, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), m.BlockLength())

	index, err := m.Add(MemoRecord{Type: MemoText, Data: []byte("hi")})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)
	assert.Equal(t, uint32(2), m.NextIndex())
	assert.Equal(t, []byte{0xFF, 0xFF, 0x08, 0x00, 10, 0, 0, 0, 'h', 'i'}, f.data[512:522])

	require.NoError(t, m.Flush())
	assert.Equal(t, uint32(512), uint32(le.Uint16(f.data[20:22])))

	rec, err := m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), rec.Data)

	f.data[512] = 0
	_, err = m.Get(1)
	assert.True(t, ErrInvalidMemoHeader.Is(err))
	assert.True(t, IsFormatError(err))
}

func TestMemoRecordsStopsAtTruncatedFrame(t *testing.T) {
	f := newMemFile(nil)
	log, hook := test.NewNullLogger()
	m, err := createMemo(f, MemoFPT, 64, log)
	require.NoError(t, err)

	for _, s := range []string{"one", string(bytes.Repeat([]byte("2"), 100)), "three"} {
		_, err := m.Add(MemoRecord{Type: MemoText, Data: []byte(s)})
		require.NoError(t, err)
	}

	var indexes []uint32
	for index := range m.Records() {
		indexes = append(indexes, index)
	}
	assert.Equal(t, []uint32{8, 9, 11}, indexes)

	// Cut the last frame short.
	f.data = f.data[:11*64+10]
	indexes = indexes[:0]
	for index, rec := range m.Records() {
		indexes = append(indexes, index)
		assert.NotEmpty(t, rec.Data)
	}
	assert.Equal(t, []uint32{8, 9}, indexes)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestOpenMemoRejectsBadHeader(t *testing.T) {
	buf := make([]byte, 512)
	be.PutUint16(buf[6:], 64)
	_, err := OpenMemo(newMemFile(buf), MemoFPT)
	assert.True(t, ErrInvalidMemoHeader.Is(err))

	_, err = OpenMemo(newMemFile(buf), MemoNone)
	assert.True(t, ErrInvalidMemoHeader.Is(err))
}
